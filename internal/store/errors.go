package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is the generic version of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrConversationNotFound indicates that the requested conversation record
	// does not exist in the store.
	ErrConversationNotFound = fmt.Errorf("%w: conversation", ErrNotFound)

	// ErrSessionNotFound indicates that the requested session has no records
	// owned by the caller.
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

	// ErrFileNotFound indicates that the requested learning file does not exist.
	ErrFileNotFound = fmt.Errorf("%w: learning file", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
