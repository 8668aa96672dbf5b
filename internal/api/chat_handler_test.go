package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studycampus/qa-api/internal/api/shared"
	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/domain"
	"github.com/studycampus/qa-api/internal/generation"
	"github.com/studycampus/qa-api/internal/service"
	"github.com/studycampus/qa-api/internal/store"
	"github.com/studycampus/qa-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// fakeModel answers every question with a fixed text.
type fakeModel struct {
	answer string
}

func (m *fakeModel) ComputeAnswer(context.Context, generation.Prompt, time.Duration) generation.Answer {
	return generation.Answer{Text: m.answer, TokensUsed: 5}
}

func (m *fakeModel) StreamAnswer(context.Context, generation.Prompt, time.Duration) <-chan generation.Fragment {
	ch := make(chan generation.Fragment)
	go func() {
		defer close(ch)
		ch <- generation.Fragment{Text: m.answer}
		ch <- generation.Fragment{Done: true}
	}()
	return ch
}

// fakeConversations records created conversations and serves canned lists.
type fakeConversations struct {
	created []*domain.Conversation
	listErr error
}

func (s *fakeConversations) Create(_ context.Context, c *domain.Conversation) error {
	s.created = append(s.created, c)
	return nil
}

func (s *fakeConversations) ListByUser(context.Context, uuid.UUID, int) ([]*domain.Conversation, error) {
	return []*domain.Conversation{}, s.listErr
}

func (s *fakeConversations) ListBySession(_ context.Context, _ uuid.UUID, sessionID string) ([]*domain.Conversation, error) {
	if sessionID == "sess_missing00000" {
		return nil, store.ErrSessionNotFound
	}
	return []*domain.Conversation{}, nil
}

func (s *fakeConversations) ListSessions(context.Context, uuid.UUID) ([]store.SessionSummary, error) {
	return []store.SessionSummary{
		{SessionID: "sess_abc123def456", Title: "Sorting", Count: 3, UpdatedAt: time.Now().UTC()},
	}, nil
}

func (s *fakeConversations) DeleteSession(_ context.Context, _ uuid.UUID, sessionID string) error {
	if sessionID == "sess_missing00000" {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *fakeConversations) RenameSession(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (s *fakeConversations) Rate(_ context.Context, _ uuid.UUID, conversationID uuid.UUID, _ domain.Rating) error {
	return store.ErrConversationNotFound
}

// fakeFiles is a no-op LearningFileStore.
type fakeFiles struct{}

func (fakeFiles) Create(context.Context, *domain.LearningFile) error { return nil }
func (fakeFiles) UpdateSummary(context.Context, uuid.UUID, string) error {
	return nil
}

type handlerFixture struct {
	handler *ChatHandler
	tasks   *task.Store
	userID  uuid.UUID
}

func newHandlerFixture(t *testing.T, model generation.ModelClient) *handlerFixture {
	t.Helper()

	logger := testLogger()
	conversations := &fakeConversations{}
	tasks := task.NewStore(time.Hour, logger)
	t.Cleanup(tasks.Close)

	pool := task.NewPool(task.DefaultPoolConfig(), logger)
	t.Cleanup(pool.Stop)

	writer := service.NewWriter(conversations, config.PersistenceConfig{
		MaxAttempts:   3,
		TruncateChars: 5000,
	}, logger)

	svc, err := service.NewChatService(service.ChatServiceParams{
		Model:         model,
		Conversations: conversations,
		Files:         fakeFiles{},
		Tasks:         tasks,
		Pool:          pool,
		Writer:        writer,
		Extractor:     service.NewPlainTextExtractor(),
		LLM: config.LLMConfig{
			SyncTimeoutSeconds:   30,
			FileTimeoutSeconds:   60,
			StreamTimeoutSeconds: 120,
		},
		Stream: config.StreamConfig{TimeoutSeconds: 120},
		Logger: logger,
	})
	require.NoError(t, err)

	return &handlerFixture{
		handler: NewChatHandler(svc, logger),
		tasks:   tasks,
		userID:  uuid.New(),
	}
}

// authed attaches the authenticated user ID the way the middleware does.
func (f *handlerFixture) authed(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, f.userID)
	return r.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) shared.Response {
	t.Helper()

	var envelope shared.Response
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope
}

func TestChatHandler_AskRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":"hi"}`))
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHandler_AskSync(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "Stacks are LIFO."})

	body := `{"question":"What is a stack?"}`
	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, http.StatusOK, envelope.Code)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "Stacks are LIFO.", resp.Answer)
	assert.True(t, strings.HasPrefix(resp.SessionID, "sess_"))
}

func TestChatHandler_AskRejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":""}`)))
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, question, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", question))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestChatHandler_AskWithFileAccepted(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "The notes cover trees."})

	body, contentType := multipartBody(t, "What do the notes cover?", "notes.txt", "binary trees, AVL trees")
	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp TaskAcceptedResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, strings.HasPrefix(resp.TaskID, "task_"))
	assert.Equal(t, "processing", resp.Status)

	// The task eventually completes and stays pollable.
	require.Eventually(t, func() bool {
		entry, ok := f.tasks.Get(resp.TaskID)
		return ok && entry.Status == task.StatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestChatHandler_AskWithFileRejectsExtensionBeforeQueueing(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	body, contentType := multipartBody(t, "analyze this", "virus.exe", "MZ")
	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.tasks.Len(), "rejected uploads never create a task")
}

func TestChatHandler_AskRejectsStreamingWithFile(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", "summarize"))
	require.NoError(t, mw.WriteField("stream", "true"))
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.tasks.Len(), "rejected requests never create a task")
}

func TestChatHandler_Status(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(http.MethodGet, "/chat/status", nil))
	rec := httptest.NewRecorder()
	f.handler.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.GreaterOrEqual(t, resp.Workers, 5, "core workers are always running")
	assert.Equal(t, 0, resp.TrackedTasks)
}

func TestChatHandler_TaskStatusNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(http.MethodGet, "/chat/task/task_deadbeef", nil))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("taskID", "task_deadbeef")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.TaskStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatHandler_Stream(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: strings.Repeat("streaming answer ", 8)})

	body := `{"question":"Explain queues"}`
	req := f.authed(httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	f.handler.Stream(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// Parse the SSE body back into events.
	var events []StreamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	require.NotEmpty(t, events)

	var assembled strings.Builder
	for i, event := range events {
		assembled.WriteString(event.Chunk)
		if i < len(events)-1 {
			assert.False(t, event.Done)
		}
	}
	last := events[len(events)-1]
	assert.True(t, last.Done, "final event carries done=true")
	assert.Equal(t, 1.0, last.Progress)
	assert.True(t, strings.HasPrefix(last.SessionID, "sess_"))
	assert.Equal(t, strings.Repeat("streaming answer ", 8), assembled.String())
}

func TestChatHandler_Sessions(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(http.MethodGet, "/chat/sessions", nil))
	rec := httptest.NewRecorder()
	f.handler.Sessions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var sessions []SessionResponse
	require.NoError(t, json.Unmarshal(data, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Sorting", sessions[0].Title)
}

func TestChatHandler_DeleteSessionNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(http.MethodDelete, "/chat/sessions/sess_missing00000", nil))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", "sess_missing00000")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.DeleteSession(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatHandler_RateUnknownConversation(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	id := uuid.New().String()
	req := f.authed(httptest.NewRequest(
		http.MethodPost,
		"/chat/conversations/"+id+"/rate",
		strings.NewReader(`{"rating":1}`)))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.RateConversation(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatHandler_RenameSessionValidatesTitle(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t, &fakeModel{answer: "a"})

	req := f.authed(httptest.NewRequest(
		http.MethodPut,
		"/chat/sessions/sess_abc123def456",
		strings.NewReader(`{"title":""}`)))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", "sess_abc123def456")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.RenameSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
