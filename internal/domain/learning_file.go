package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// summaryLimit is the number of answer characters kept as the file summary.
const summaryLimit = 200

// Common validation errors for LearningFile
var (
	ErrEmptyFileID       = errors.New("file ID cannot be empty")
	ErrEmptyFileUserID   = errors.New("file user ID cannot be empty")
	ErrEmptyFileName     = errors.New("file name cannot be empty")
	ErrInvalidFileStatus = errors.New("invalid file status")
)

// FileStatus represents the lifecycle state of an uploaded file.
type FileStatus string

// Possible file status values
const (
	FileStatusActive  FileStatus = "active"
	FileStatusDeleted FileStatus = "deleted"
)

// LearningFile is the metadata record for a document a user attached to a
// question. The binary content itself is handled by the upload collaborator;
// this service only writes the metadata and, once an answer exists, a short
// summary derived from it.
type LearningFile struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	OriginalName string     `json:"original_name"`
	StoredName   string     `json:"stored_name"`
	FileType     string     `json:"file_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Summary      string     `json:"summary,omitempty"`
	Status       FileStatus `json:"status"`
	UploadedAt   time.Time  `json:"uploaded_at"`
}

// NewLearningFile creates an active LearningFile for an upload. The stored
// name is prefixed with a fresh UUID so uploads with the same original name
// never collide.
func NewLearningFile(userID uuid.UUID, originalName, fileType string, sizeBytes int64) (*LearningFile, error) {
	f := &LearningFile{
		ID:           uuid.New(),
		UserID:       userID,
		OriginalName: originalName,
		StoredName:   uuid.New().String() + "_" + originalName,
		FileType:     fileType,
		SizeBytes:    sizeBytes,
		Status:       FileStatusActive,
		UploadedAt:   time.Now().UTC(),
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// Validate checks if the LearningFile has valid data.
func (f *LearningFile) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyFileID
	}

	if f.UserID == uuid.Nil {
		return ErrEmptyFileUserID
	}

	if f.OriginalName == "" {
		return ErrEmptyFileName
	}

	switch f.Status {
	case FileStatusActive, FileStatusDeleted:
	default:
		return ErrInvalidFileStatus
	}

	return nil
}

// SummaryFromAnswer derives the stored summary text from a model answer.
func SummaryFromAnswer(answer string) string {
	runes := []rune(answer)
	if len(runes) <= summaryLimit {
		return answer
	}
	return string(runes[:summaryLimit]) + "..."
}
