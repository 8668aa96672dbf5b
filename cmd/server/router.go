package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/studycampus/qa-api/internal/api"
	apiMiddleware "github.com/studycampus/qa-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	chatHandler := api.NewChatHandler(app.chatService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.authValidator)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Question paths
			r.Post("/chat", chatHandler.Ask)
			r.Post("/chat/stream", chatHandler.Stream)
			r.Get("/chat/task/{taskID}", chatHandler.TaskStatus)
			r.Get("/chat/status", chatHandler.Status)

			// History and session management
			r.Get("/chat/history", chatHandler.History)
			r.Get("/chat/sessions", chatHandler.Sessions)
			r.Get("/chat/sessions/{sessionID}/messages", chatHandler.SessionMessages)
			r.Put("/chat/sessions/{sessionID}", chatHandler.RenameSession)
			r.Delete("/chat/sessions/{sessionID}", chatHandler.DeleteSession)
			r.Post("/chat/conversations/{conversationID}/rate", chatHandler.RateConversation)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
