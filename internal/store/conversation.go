package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studycampus/qa-api/internal/domain"
)

// SessionSummary describes one session in a user's session list.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationStore defines the interface for conversation record persistence.
type ConversationStore interface {
	// Create saves a new conversation record.
	// It handles domain validation internally.
	Create(ctx context.Context, conversation *domain.Conversation) error

	// ListByUser retrieves the caller's records newest-first, up to limit.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Conversation, error)

	// ListBySession retrieves the records of one session in creation order.
	// Returns ErrSessionNotFound if the session has no records owned by userID.
	ListBySession(ctx context.Context, userID uuid.UUID, sessionID string) ([]*domain.Conversation, error)

	// ListSessions returns a summary per distinct session owned by the caller,
	// most recently active first.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]SessionSummary, error)

	// DeleteSession removes every record of the given session.
	// Returns ErrSessionNotFound if no owned records match.
	DeleteSession(ctx context.Context, userID uuid.UUID, sessionID string) error

	// RenameSession sets the title on every record of the given session.
	// Returns ErrSessionNotFound if no owned records match.
	RenameSession(ctx context.Context, userID uuid.UUID, sessionID, title string) error

	// Rate sets the rating of one record.
	// Returns ErrConversationNotFound if the record does not exist or is not
	// owned by userID.
	Rate(ctx context.Context, userID, conversationID uuid.UUID, rating domain.Rating) error
}
