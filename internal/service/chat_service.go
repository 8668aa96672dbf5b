package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/domain"
	"github.com/studycampus/qa-api/internal/generation"
	"github.com/studycampus/qa-api/internal/store"
	"github.com/studycampus/qa-api/internal/stream"
	"github.com/studycampus/qa-api/internal/task"
)

const (
	sessionIDPrefix = "sess_"
	sessionIDLength = 12

	// defaultFileQuestion stands in when a file upload arrives without a
	// question of its own.
	defaultFileQuestion = "Please summarize the key points of this study material."

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// AskResult is the outcome of a blocking chat exchange.
type AskResult struct {
	SessionID  string
	Answer     string
	Fallback   bool
	TokensUsed int
}

// ChatServiceParams bundles the collaborators a ChatService needs.
type ChatServiceParams struct {
	Model         generation.ModelClient
	Conversations store.ConversationStore
	Files         store.LearningFileStore
	Tasks         *task.Store
	Pool          *task.Pool
	Writer        *Writer
	Extractor     TextExtractor
	LLM           config.LLMConfig
	Stream        config.StreamConfig
	Logger        *slog.Logger
}

// ChatService routes incoming questions onto one of three paths: a blocking
// exchange, a pollable background task for file-based questions, or a
// streaming session. It also owns the session CRUD operations.
type ChatService struct {
	model         generation.ModelClient
	conversations store.ConversationStore
	files         store.LearningFileStore
	tasks         *task.Store
	pool          *task.Pool
	writer        *Writer
	extractor     TextExtractor
	llm           config.LLMConfig
	streamCfg     config.StreamConfig
	logger        *slog.Logger
}

// NewChatService creates a ChatService. All collaborators are required.
func NewChatService(p ChatServiceParams) (*ChatService, error) {
	switch {
	case p.Model == nil:
		return nil, fmt.Errorf("model client is required")
	case p.Conversations == nil:
		return nil, fmt.Errorf("conversation store is required")
	case p.Files == nil:
		return nil, fmt.Errorf("learning file store is required")
	case p.Tasks == nil:
		return nil, fmt.Errorf("task store is required")
	case p.Pool == nil:
		return nil, fmt.Errorf("worker pool is required")
	case p.Writer == nil:
		return nil, fmt.Errorf("conversation writer is required")
	case p.Extractor == nil:
		return nil, fmt.Errorf("text extractor is required")
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatService{
		model:         p.Model,
		conversations: p.Conversations,
		files:         p.Files,
		tasks:         p.Tasks,
		pool:          p.Pool,
		writer:        p.Writer,
		extractor:     p.Extractor,
		llm:           p.LLM,
		streamCfg:     p.Stream,
		logger:        logger.With(slog.String("component", "chat_service")),
	}, nil
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string {
	return sessionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:sessionIDLength]
}

// EnsureSession returns the given session id, or a fresh one when empty.
func EnsureSession(sessionID string) string {
	if sessionID == "" {
		return NewSessionID()
	}
	return sessionID
}

// Ask answers a plain question synchronously. The exchange is persisted in
// the background after the answer is returned; a persistence failure never
// reaches the caller.
func (s *ChatService) Ask(ctx context.Context, userID uuid.UUID, sessionID, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, ErrQuestionRequired
	}
	sessionID = EnsureSession(sessionID)

	answer := s.model.ComputeAnswer(ctx, generation.Prompt{Question: question}, s.syncTimeout())

	s.persistAsync(userID, sessionID, question, answer, nil)

	return AskResult{
		SessionID:  sessionID,
		Answer:     answer.Text,
		Fallback:   answer.Fallback,
		TokensUsed: answer.TokensUsed,
	}, nil
}

// AskWithFile queues a background task that answers the question using the
// uploaded document as reference material. The upload is validated and its
// text extracted before anything is queued, so a bad upload costs no task.
// Returns the task id for polling plus the session id in effect.
func (s *ChatService) AskWithFile(ctx context.Context, userID uuid.UUID, sessionID, question string, upload Upload) (string, string, error) {
	if !AllowedUpload(upload.Filename) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, upload.Extension())
	}

	question = strings.TrimSpace(question)
	if question == "" {
		question = defaultFileQuestion
	}
	sessionID = EnsureSession(sessionID)

	text, err := s.extractor.Extract(ctx, upload.Filename, upload.Content)
	if err != nil {
		return "", "", err
	}

	file, err := domain.NewLearningFile(userID, upload.Filename, upload.Extension(), upload.SizeBytes)
	if err != nil {
		return "", "", err
	}

	taskID := s.tasks.Begin()
	unit := func(ctx context.Context) {
		s.runFileTask(ctx, taskID, userID, sessionID, question, text, file)
	}
	if err := s.pool.Submit(unit); err != nil {
		s.tasks.Fail(taskID, "service is shutting down")
		return "", "", err
	}

	return taskID, sessionID, nil
}

// runFileTask is the worker-side half of AskWithFile. Upstream and
// persistence failures are absorbed; only a panic or shutdown marks the
// task failed.
func (s *ChatService) runFileTask(
	ctx context.Context,
	taskID string,
	userID uuid.UUID,
	sessionID, question, text string,
	file *domain.LearningFile,
) {
	log := s.logger.With(slog.String("task_id", taskID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("file task panicked", slog.Any("panic", r))
			s.tasks.Fail(taskID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		s.tasks.Fail(taskID, "service is shutting down")
		return
	}

	if err := s.files.Create(ctx, file); err != nil {
		log.Error("learning file metadata not saved",
			slog.String("file_id", file.ID.String()),
			slog.String("error", err.Error()))
	}

	prompt := generation.Prompt{Question: question, Contexts: []string{text}}
	answer := s.model.ComputeAnswer(ctx, prompt, s.fileTimeout())

	s.tasks.Complete(taskID, answer.Text)

	conversation, err := domain.NewConversation(userID, sessionID, question, answer.Text, &file.ID, answer.TokensUsed)
	if err != nil {
		log.Error("conversation rejected before save", slog.String("error", err.Error()))
		return
	}
	_ = s.writer.Save(ctx, conversation)

	if !answer.Fallback {
		if err := s.files.UpdateSummary(ctx, file.ID, domain.SummaryFromAnswer(answer.Text)); err != nil {
			log.Error("file summary not saved",
				slog.String("file_id", file.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

// AskStream opens a streaming session for the question. ctx must be the
// remote caller's request context. The caller consumes Chunks() on the
// returned relay; the exchange is persisted only after normal completion.
func (s *ChatService) AskStream(ctx context.Context, userID uuid.UUID, sessionID, question string) (*stream.Relay, string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, "", ErrQuestionRequired
	}
	sessionID = EnsureSession(sessionID)

	relay := stream.NewRelay(stream.Config{
		Timeout: s.streamTimeout(),
		Pace:    time.Duration(s.streamCfg.ChunkDelayMillis) * time.Millisecond,
	}, s.logger)

	// The producer observes streamCtx so it unblocks as soon as the relay
	// gives up on the session, not just when the request context ends.
	streamCtx, cancelStream := context.WithCancel(ctx)
	fragments := s.model.StreamAnswer(streamCtx, generation.Prompt{Question: question}, s.modelStreamTimeout())

	go func() {
		defer cancelStream()

		answer, err := relay.Run(ctx, fragments)
		if err != nil {
			// Timed-out, disconnected or failed streams leave no record.
			s.logger.Info("streaming session ended without completion",
				slog.String("session_id", sessionID),
				slog.String("state", relay.State().String()),
				slog.String("error", err.Error()))
			return
		}
		s.persistAsync(userID, sessionID, question, generation.Answer{Text: answer}, nil)
	}()

	return relay, sessionID, nil
}

// TaskStatus returns the tracked state of a background task.
func (s *ChatService) TaskStatus(id string) (task.Entry, bool) {
	return s.tasks.Get(id)
}

// Load is a point-in-time snapshot of background processing activity.
type Load struct {
	Pool         task.PoolStats
	TrackedTasks int
}

// Status reports the current background processing load.
func (s *ChatService) Status() Load {
	return Load{
		Pool:         s.pool.Stats(),
		TrackedTasks: s.tasks.Len(),
	}
}

// History returns the caller's recent exchanges, newest first.
func (s *ChatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.conversations.ListByUser(ctx, userID, limit)
}

// SessionMessages returns one session's exchanges in creation order.
func (s *ChatService) SessionMessages(ctx context.Context, userID uuid.UUID, sessionID string) ([]*domain.Conversation, error) {
	return s.conversations.ListBySession(ctx, userID, sessionID)
}

// Sessions returns a summary per session owned by the caller.
func (s *ChatService) Sessions(ctx context.Context, userID uuid.UUID) ([]store.SessionSummary, error) {
	return s.conversations.ListSessions(ctx, userID)
}

// RenameSession sets a new display title on every record of the session.
func (s *ChatService) RenameSession(ctx context.Context, userID uuid.UUID, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	return s.conversations.RenameSession(ctx, userID, sessionID, title)
}

// DeleteSession removes every record of the session.
func (s *ChatService) DeleteSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return s.conversations.DeleteSession(ctx, userID, sessionID)
}

// RateConversation records the caller's judgment on one exchange.
func (s *ChatService) RateConversation(ctx context.Context, userID, conversationID uuid.UUID, rating int) error {
	switch domain.Rating(rating) {
	case domain.RatingNegative, domain.RatingUnset, domain.RatingPositive:
	default:
		return ErrInvalidRating
	}
	return s.conversations.Rate(ctx, userID, conversationID, domain.Rating(rating))
}

// persistAsync hands the finished exchange to the worker pool so the caller
// never waits on storage.
func (s *ChatService) persistAsync(userID uuid.UUID, sessionID, question string, answer generation.Answer, fileID *uuid.UUID) {
	unit := func(ctx context.Context) {
		conversation, err := domain.NewConversation(userID, sessionID, question, answer.Text, fileID, answer.TokensUsed)
		if err != nil {
			s.logger.Error("conversation rejected before save",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			return
		}
		_ = s.writer.Save(ctx, conversation)
	}
	if err := s.pool.Submit(unit); err != nil {
		s.logger.Warn("conversation dropped, worker pool stopped",
			slog.String("session_id", sessionID))
	}
}

func (s *ChatService) syncTimeout() time.Duration {
	return time.Duration(s.llm.SyncTimeoutSeconds) * time.Second
}

func (s *ChatService) fileTimeout() time.Duration {
	return time.Duration(s.llm.FileTimeoutSeconds) * time.Second
}

func (s *ChatService) streamTimeout() time.Duration {
	return time.Duration(s.streamCfg.TimeoutSeconds) * time.Second
}

func (s *ChatService) modelStreamTimeout() time.Duration {
	return time.Duration(s.llm.StreamTimeoutSeconds) * time.Second
}
