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

// PostgresConversationStore implements the store.ConversationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresConversationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresConversationStore creates a new PostgreSQL implementation of the
// ConversationStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresConversationStore(db store.DBTX, logger *slog.Logger) *PostgresConversationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresConversationStore{
		db:     db,
		logger: logger.With(slog.String("component", "conversation_store")),
	}
}

// Ensure PostgresConversationStore implements store.ConversationStore
var _ store.ConversationStore = (*PostgresConversationStore)(nil)

// Create implements store.ConversationStore.Create.
// Returns store.ErrInvalidEntity when the record fails domain validation or
// references a file that does not exist.
func (s *PostgresConversationStore) Create(ctx context.Context, c *domain.Conversation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("conversation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("conversation_id", c.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO conversations
			(id, user_id, session_id, question, answer, file_id, token_usage, rating, title, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.UserID,
		c.SessionID,
		c.Question,
		c.Answer,
		c.FileID,
		c.TokenUsage,
		c.Rating,
		c.Title,
		c.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during conversation creation",
				slog.String("error", err.Error()),
				slog.String("conversation_id", c.ID.String()))
			return fmt.Errorf("%w: referenced file not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", c.ID.String()),
			slog.String("session_id", c.SessionID))
		return err
	}

	log.Debug("conversation created",
		slog.String("conversation_id", c.ID.String()),
		slog.String("session_id", c.SessionID))
	return nil
}

// ListByUser implements store.ConversationStore.ListByUser.
func (s *PostgresConversationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, session_id, question, answer, file_id, token_usage, rating, title, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		log.Error("failed to list conversations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	return scanConversations(rows)
}

// ListBySession implements store.ConversationStore.ListBySession.
// Returns store.ErrSessionNotFound when the session has no records owned by
// the caller.
func (s *PostgresConversationStore) ListBySession(ctx context.Context, userID uuid.UUID, sessionID string) ([]*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, session_id, question, answer, file_id, token_usage, rating, title, created_at
		FROM conversations
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, sessionID)
	if err != nil {
		log.Error("failed to list session conversations",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID))
		return nil, err
	}
	defer closeRows(rows, log)

	conversations, err := scanConversations(rows)
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, store.ErrSessionNotFound
	}
	return conversations, nil
}

// ListSessions implements store.ConversationStore.ListSessions.
func (s *PostgresConversationStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]store.SessionSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT session_id,
		       (ARRAY_AGG(title ORDER BY created_at ASC))[1] AS title,
		       COUNT(*) AS count,
		       MAX(created_at) AS updated_at
		FROM conversations
		WHERE user_id = $1
		GROUP BY session_id
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list sessions",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	sessions := []store.SessionSummary{}
	for rows.Next() {
		var s store.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Title, &s.Count, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession implements store.ConversationStore.DeleteSession.
// Returns store.ErrSessionNotFound when no owned records match.
func (s *PostgresConversationStore) DeleteSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM conversations WHERE user_id = $1 AND session_id = $2`
	result, err := s.db.ExecContext(ctx, query, userID, sessionID)
	if err != nil {
		log.Error("failed to delete session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}

	log.Info("session deleted",
		slog.String("session_id", sessionID),
		slog.Int64("records", affected))
	return nil
}

// RenameSession implements store.ConversationStore.RenameSession.
// Returns store.ErrSessionNotFound when no owned records match.
func (s *PostgresConversationStore) RenameSession(ctx context.Context, userID uuid.UUID, sessionID, title string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE conversations SET title = $1 WHERE user_id = $2 AND session_id = $3`
	result, err := s.db.ExecContext(ctx, query, title, userID, sessionID)
	if err != nil {
		log.Error("failed to rename session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// Rate implements store.ConversationStore.Rate.
// Returns store.ErrConversationNotFound when the record does not exist or is
// not owned by the caller.
func (s *PostgresConversationStore) Rate(ctx context.Context, userID, conversationID uuid.UUID, rating domain.Rating) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE conversations SET rating = $1 WHERE id = $2 AND user_id = $3`
	result, err := s.db.ExecContext(ctx, query, rating, conversationID, userID)
	if err != nil {
		log.Error("failed to rate conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conversationID.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConversationNotFound
	}
	return nil
}
