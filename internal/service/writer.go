package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/domain"
	"github.com/studycampus/qa-api/internal/store"
)

// answerLimit caps runaway answers before the first write attempt.
const answerLimit = 10000

// truncationNotice is appended whenever stored answer text was shortened.
const truncationNotice = "\n...(answer truncated)"

// Writer persists conversation records with a bounded retry schedule. A
// write that keeps failing is degraded to a truncated record and, if even
// that fails, dropped with a log entry. Callers never see the failure; the
// chat exchange has already been delivered by then.
type Writer struct {
	conversations store.ConversationStore
	maxAttempts   int
	truncateChars int
	baseDelay     time.Duration
	logger        *slog.Logger
}

// NewWriter creates a Writer with the configured retry budget.
func NewWriter(conversations store.ConversationStore, cfg config.PersistenceConfig, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		conversations: conversations,
		maxAttempts:   cfg.MaxAttempts,
		truncateChars: cfg.TruncateChars,
		baseDelay:     time.Second,
		logger:        logger.With(slog.String("component", "conversation_writer")),
	}
}

// Save writes the conversation, retrying transient failures on a linear
// backoff schedule. After the retry budget is spent it degrades the record
// to a truncated answer and tries once more; a failure of the degraded
// write drops the record. The returned error reflects the final outcome but
// is informational only; Save has already logged it.
func (w *Writer) Save(ctx context.Context, conversation *domain.Conversation) error {
	if truncated, ok := truncateRunes(conversation.Answer, answerLimit); ok {
		w.logger.Warn("capping oversized answer before save",
			slog.String("conversation_id", conversation.ID.String()),
			slog.Int("limit", answerLimit))
		conversation.Answer = truncated
	}

	backoff := retry.WithMaxRetries(uint64(w.maxAttempts-1), linearBackoff(w.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := w.conversations.Create(ctx, conversation)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrInvalidEntity) {
			// A record that fails validation will never succeed on retry.
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrInvalidEntity) {
		w.logger.Error("conversation rejected as invalid",
			slog.String("conversation_id", conversation.ID.String()),
			slog.String("error", err.Error()))
		return err
	}

	w.logger.Warn("retry budget spent, degrading conversation record",
		slog.String("conversation_id", conversation.ID.String()),
		slog.Int("attempts", w.maxAttempts),
		slog.String("error", err.Error()))

	degraded := *conversation
	if truncated, ok := truncateRunes(degraded.Answer, w.truncateChars); ok {
		degraded.Answer = truncated
	}

	if err := w.conversations.Create(ctx, &degraded); err != nil {
		w.logger.Error("conversation dropped after degraded write failed",
			slog.String("conversation_id", conversation.ID.String()),
			slog.String("session_id", conversation.SessionID),
			slog.String("error", err.Error()))
		return err
	}

	return nil
}

// linearBackoff waits base after the first failure, 2*base after the
// second, and so on.
func linearBackoff(base time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}

// truncateRunes shortens s to at most limit runes plus a notice. The second
// return reports whether anything was cut.
func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]) + truncationNotice, true
}
