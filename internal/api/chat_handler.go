package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/studycampus/qa-api/internal/api/shared"
	"github.com/studycampus/qa-api/internal/service"
)

// maxUploadBytes bounds the multipart memory footprint per request.
const maxUploadBytes = 20 << 20

// ChatHandler handles the chat and session HTTP endpoints.
type ChatHandler struct {
	chat      *service.ChatService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatHandler{
		chat:      chat,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "chat_handler")),
	}
}

// Ask handles POST /chat requests. A multipart body with a file attachment
// is queued as a background task and answered with 202; everything else is
// answered synchronously with 200.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.askMultipart(w, r, userID)
		return
	}

	var req ChatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.chat.Ask(r.Context(), userID, req.SessionID, req.Question)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, ChatResponse{
		Answer:     result.Answer,
		SessionID:  result.SessionID,
		Fallback:   result.Fallback,
		TokensUsed: result.TokensUsed,
	})
}

// askMultipart routes a form-encoded question, queuing a task when a file
// rides along and answering synchronously when one does not.
func (h *ChatHandler) askMultipart(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	question := r.FormValue("question")
	sessionID := r.FormValue("session_id")
	wantStream := r.FormValue("stream") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			if wantStream {
				h.streamAnswer(w, r, userID, sessionID, question)
				return
			}
			result, askErr := h.chat.Ask(r.Context(), userID, sessionID, question)
			if askErr != nil {
				h.respondError(w, r, askErr)
				return
			}
			shared.RespondWithData(w, r, http.StatusOK, ChatResponse{
				Answer:     result.Answer,
				SessionID:  result.SessionID,
				Fallback:   result.Fallback,
				TokensUsed: result.TokensUsed,
			})
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file attachment")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			h.logger.Warn("failed to close upload", slog.String("error", err.Error()))
		}
	}()

	if wantStream {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Streaming with a file attachment is not supported")
		return
	}

	upload := service.Upload{
		Filename:  header.Filename,
		SizeBytes: header.Size,
		Content:   file,
	}

	taskID, sessionID, err := h.chat.AskWithFile(r.Context(), userID, sessionID, question, upload)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithData(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID:    taskID,
		SessionID: sessionID,
		Status:    "processing",
	})
}

// TaskStatus handles GET /chat/task/{taskID} polling requests.
func (h *ChatHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	taskID := chi.URLParam(r, "taskID")
	entry, ok := h.chat.TaskStatus(taskID)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, TaskStatusResponse{
		TaskID: entry.ID,
		Status: string(entry.Status),
		Answer: entry.Answer,
		Error:  entry.Error,
	})
}

// Status handles GET /chat/status requests, reporting pool and task load.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	load := h.chat.Status()
	shared.RespondWithData(w, r, http.StatusOK, StatusResponse{
		Workers:        load.Pool.Workers,
		ActiveUnits:    load.Pool.ActiveUnits,
		QueueLength:    load.Pool.QueueLength,
		CompletedUnits: load.Pool.Completed,
		TrackedTasks:   load.TrackedTasks,
	})
}

// Stream handles POST /chat/stream requests, pushing the answer as
// server-sent events. Errors after the stream opens terminate the event
// stream without a trailing done event; only validation and auth failures
// produce a non-200 status.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	h.streamAnswer(w, r, userID, req.SessionID, req.Question)
}

// streamAnswer opens an SSE response and forwards relay chunks until the
// stream ends or the client goes away.
func (h *ChatHandler) streamAnswer(w http.ResponseWriter, r *http.Request, userID uuid.UUID, sessionID, question string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	relay, sessionID, err := h.chat.AskStream(r.Context(), userID, sessionID, question)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range relay.Chunks() {
		event := StreamEvent{
			Chunk:     chunk.Text,
			Done:      chunk.Done,
			SessionID: sessionID,
			Progress:  chunk.Progress,
		}
		if err := writeSSE(w, chunk.ID, event); err != nil {
			// The client is gone; the relay notices via the request context.
			h.logger.Debug("stream write failed", slog.String("error", err.Error()))
			return
		}
		flusher.Flush()
	}
}

// History handles GET /chat/history requests.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	conversations, err := h.chat.History(r.Context(), userID, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	responses := make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		responses = append(responses, conversationToResponse(c))
	}
	shared.RespondWithData(w, r, http.StatusOK, responses)
}

// Sessions handles GET /chat/sessions requests.
func (h *ChatHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.chat.Sessions(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	responses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, sessionToResponse(s))
	}
	shared.RespondWithData(w, r, http.StatusOK, responses)
}

// SessionMessages handles GET /chat/sessions/{sessionID}/messages requests.
func (h *ChatHandler) SessionMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	conversations, err := h.chat.SessionMessages(r.Context(), userID, sessionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	responses := make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		responses = append(responses, conversationToResponse(c))
	}
	shared.RespondWithData(w, r, http.StatusOK, responses)
}

// RenameSession handles PUT /chat/sessions/{sessionID} requests.
func (h *ChatHandler) RenameSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req RenameSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chat.RenameSession(r.Context(), userID, sessionID, req.Title); err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, nil)
}

// DeleteSession handles DELETE /chat/sessions/{sessionID} requests.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chat.DeleteSession(r.Context(), userID, sessionID); err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, nil)
}

// RateConversation handles POST /chat/conversations/{conversationID}/rate requests.
func (h *ChatHandler) RateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	var req RateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.chat.RateConversation(r.Context(), userID, conversationID, req.Rating); err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, nil)
}

func (h *ChatHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// requireUser extracts the authenticated user ID set by the auth middleware.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// writeSSE emits one server-sent event with the chunk id as the event id.
func writeSSE(w http.ResponseWriter, id int, event StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: message\nid: %d\ndata: %s\n\n", id, payload)
	return err
}
