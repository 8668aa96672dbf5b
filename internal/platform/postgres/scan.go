package postgres

import (
	"database/sql"
	"log/slog"

	"github.com/studycampus/qa-api/internal/domain"
)

// closeRows closes rows and logs a close failure, since a deferred close has
// nowhere else to report it.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}

// scanConversations drains rows into conversation records.
func scanConversations(rows *sql.Rows) ([]*domain.Conversation, error) {
	conversations := []*domain.Conversation{}
	for rows.Next() {
		var c domain.Conversation
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.SessionID,
			&c.Question,
			&c.Answer,
			&c.FileID,
			&c.TokenUsage,
			&c.Rating,
			&c.Title,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}
