package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/studycampus/qa-api/internal/domain"
	"github.com/studycampus/qa-api/internal/platform/logger"
	"github.com/studycampus/qa-api/internal/store"
)

// PostgresLearningFileStore implements the store.LearningFileStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLearningFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearningFileStore creates a new PostgreSQL implementation of the
// LearningFileStore interface.
func NewPostgresLearningFileStore(db store.DBTX, logger *slog.Logger) *PostgresLearningFileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLearningFileStore{
		db:     db,
		logger: logger.With(slog.String("component", "learning_file_store")),
	}
}

// Ensure PostgresLearningFileStore implements store.LearningFileStore
var _ store.LearningFileStore = (*PostgresLearningFileStore)(nil)

// Create implements store.LearningFileStore.Create.
func (s *PostgresLearningFileStore) Create(ctx context.Context, f *domain.LearningFile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		log.Warn("learning file validation failed during create",
			slog.String("error", err.Error()),
			slog.String("file_id", f.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO learning_files
			(id, user_id, original_name, stored_name, file_type, size_bytes, summary, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		f.ID,
		f.UserID,
		f.OriginalName,
		f.StoredName,
		f.FileType,
		f.SizeBytes,
		f.Summary,
		f.Status,
		f.UploadedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("duplicate learning file id",
				slog.String("file_id", f.ID.String()))
			return fmt.Errorf("%w: duplicate file id", store.ErrInvalidEntity)
		}

		log.Error("failed to create learning file",
			slog.String("error", err.Error()),
			slog.String("file_id", f.ID.String()))
		return err
	}

	log.Debug("learning file created",
		slog.String("file_id", f.ID.String()),
		slog.String("stored_name", f.StoredName))
	return nil
}

// UpdateSummary implements store.LearningFileStore.UpdateSummary.
// Returns store.ErrFileNotFound when the file does not exist.
func (s *PostgresLearningFileStore) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE learning_files SET summary = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, summary, id)
	if err != nil {
		log.Error("failed to update file summary",
			slog.String("error", err.Error()),
			slog.String("file_id", id.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrFileNotFound
	}
	return nil
}
