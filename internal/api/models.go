package api

import (
	"time"

	"github.com/studycampus/qa-api/internal/domain"
	"github.com/studycampus/qa-api/internal/store"
)

// ChatRequest is the JSON body for a plain (non-file) chat request.
type ChatRequest struct {
	Question  string `json:"question"   validate:"required,min=1,max=4000"`
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
}

// ChatResponse is the synchronous answer payload.
type ChatResponse struct {
	Answer     string `json:"answer"`
	SessionID  string `json:"session_id"`
	Fallback   bool   `json:"fallback,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// TaskAcceptedResponse is returned when a file question was queued.
type TaskAcceptedResponse struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// TaskStatusResponse is the polling payload for a background task.
type TaskStatusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ConversationResponse represents one persisted exchange.
type ConversationResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	FileID     string    `json:"file_id,omitempty"`
	TokenUsage int       `json:"token_usage"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionResponse represents one session in the session list.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenameSessionRequest is the JSON body for renaming a session.
type RenameSessionRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100"`
}

// RateRequest is the JSON body for rating a conversation.
type RateRequest struct {
	Rating int `json:"rating" validate:"oneof=-1 0 1"`
}

// StatusResponse reports the background processing load.
type StatusResponse struct {
	Workers        int   `json:"workers"`
	ActiveUnits    int   `json:"active_units"`
	QueueLength    int   `json:"queue_length"`
	CompletedUnits int64 `json:"completed_units"`
	TrackedTasks   int   `json:"tracked_tasks"`
}

// StreamEvent is the payload of one server-sent event.
type StreamEvent struct {
	Chunk     string  `json:"chunk"`
	Done      bool    `json:"done"`
	SessionID string  `json:"session_id"`
	Progress  float64 `json:"progress"`
}

func conversationToResponse(c *domain.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:         c.ID.String(),
		SessionID:  c.SessionID,
		Question:   c.Question,
		Answer:     c.Answer,
		TokenUsage: c.TokenUsage,
		Rating:     int(c.Rating),
		Title:      c.Title,
		CreatedAt:  c.CreatedAt,
	}
	if c.FileID != nil {
		resp.FileID = c.FileID.String()
	}
	return resp
}

func sessionToResponse(s store.SessionSummary) SessionResponse {
	return SessionResponse{
		SessionID: s.SessionID,
		Title:     s.Title,
		Count:     s.Count,
		UpdatedAt: s.UpdatedAt,
	}
}
