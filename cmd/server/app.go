package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/generation"
	"github.com/studycampus/qa-api/internal/platform/gemini"
	"github.com/studycampus/qa-api/internal/platform/openai"
	"github.com/studycampus/qa-api/internal/platform/postgres"
	"github.com/studycampus/qa-api/internal/service"
	"github.com/studycampus/qa-api/internal/service/auth"
	"github.com/studycampus/qa-api/internal/store"
	"github.com/studycampus/qa-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	conversationStore store.ConversationStore
	fileStore         store.LearningFileStore

	taskStore *task.Store
	pool      *task.Pool

	authValidator auth.Validator
	modelClient   generation.ModelClient
	chatService   *service.ChatService
}

// newApplication wires the full dependency graph from configuration.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	conversationStore := postgres.NewPostgresConversationStore(db, logger)
	fileStore := postgres.NewPostgresLearningFileStore(db, logger)

	authValidator, err := auth.NewJWTValidator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth validator: %w", err)
	}

	modelClient, err := newModelClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	taskStore := task.NewStore(time.Duration(cfg.Task.RetentionMinutes)*time.Minute, logger)
	taskStore.StartJanitor(time.Minute)

	pool := task.NewPool(task.PoolConfig{
		MinWorkers:    cfg.Task.MinWorkers,
		MaxWorkers:    cfg.Task.MaxWorkers,
		QueueSize:     cfg.Task.QueueSize,
		IdleTimeout:   time.Duration(cfg.Task.IdleTimeoutSeconds) * time.Second,
		ShutdownGrace: time.Duration(cfg.Task.ShutdownGraceSeconds) * time.Second,
	}, logger)

	writer := service.NewWriter(conversationStore, cfg.Persistence, logger)

	chatService, err := service.NewChatService(service.ChatServiceParams{
		Model:         modelClient,
		Conversations: conversationStore,
		Files:         fileStore,
		Tasks:         taskStore,
		Pool:          pool,
		Writer:        writer,
		Extractor:     service.NewPlainTextExtractor(),
		LLM:           cfg.LLM,
		Stream:        cfg.Stream,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	return &application{
		config:            cfg,
		logger:            logger,
		db:                db,
		conversationStore: conversationStore,
		fileStore:         fileStore,
		taskStore:         taskStore,
		pool:              pool,
		authValidator:     authValidator,
		modelClient:       modelClient,
		chatService:       chatService,
	}, nil
}

// newModelClient selects the upstream client implementation by provider.
func newModelClient(cfg config.LLMConfig, logger *slog.Logger) (generation.ModelClient, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(cfg, logger)
	case "gemini":
		return gemini.NewClient(context.Background(), cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// cleanup releases background resources in dependency order. The worker
// pool drains first so in-flight tasks can still reach the stores.
func (app *application) cleanup() {
	app.logger.Info("Draining worker pool...")
	app.pool.Stop()
	app.taskStore.Close()
}
