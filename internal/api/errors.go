package api

import (
	"errors"
	"net/http"

	"github.com/studycampus/qa-api/internal/service"
	"github.com/studycampus/qa-api/internal/service/auth"
	"github.com/studycampus/qa-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes. Only authentication, validation and not-found conditions produce a
// non-200 status; upstream and persistence failures are absorbed earlier
// and never reach this mapping.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrConversationNotFound),
		errors.Is(err, store.ErrFileNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, service.ErrQuestionRequired),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, store.ErrConversationNotFound):
		return "Conversation not found"

	case errors.Is(err, store.ErrFileNotFound):
		return "File not found"

	case errors.Is(err, service.ErrQuestionRequired):
		return "Question must not be empty"

	case errors.Is(err, service.ErrUnsupportedFileType):
		return "Unsupported file type, allowed: pdf, doc, docx, txt, ppt, pptx"

	case errors.Is(err, service.ErrTitleRequired):
		return "Session title must not be empty"

	case errors.Is(err, service.ErrInvalidRating):
		return "Rating must be -1, 0 or 1"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
