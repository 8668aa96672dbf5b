package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/studycampus/qa-api/internal/domain"
)

// LearningFileStore defines the interface for learning-file metadata persistence.
type LearningFileStore interface {
	// Create saves a new learning file record.
	Create(ctx context.Context, file *domain.LearningFile) error

	// UpdateSummary writes the derived summary for an existing file.
	// Returns ErrFileNotFound if the file does not exist.
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error
}
