package service

import "errors"

// Validation errors surfaced to the remote caller. Everything else the
// service encounters (upstream failures, persistence failures) is absorbed
// and logged rather than returned.
var (
	// ErrQuestionRequired indicates a chat request with an empty question.
	ErrQuestionRequired = errors.New("question must not be empty")

	// ErrUnsupportedFileType indicates an upload whose extension is outside
	// the allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrTitleRequired indicates a session rename with an empty title.
	ErrTitleRequired = errors.New("session title must not be empty")

	// ErrInvalidRating indicates a rating outside the tri-state range.
	ErrInvalidRating = errors.New("rating must be -1, 0 or 1")
)
