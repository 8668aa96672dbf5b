package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Task        TaskConfig        `mapstructure:"task"        validate:"required"`
	Stream      StreamConfig      `mapstructure:"stream"      validate:"required"`
	Persistence PersistenceConfig `mapstructure:"persistence" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the settings used to validate caller tokens.
// Token issuance belongs to the account service; this service only verifies.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all settings for the upstream text-generation endpoint.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" targets any
	// OpenAI-compatible endpoint (DashScope/Qwen included), "gemini" targets
	// the Gemini API.
	Provider string `mapstructure:"provider" validate:"required,oneof=openai gemini"`
	APIKey   string `mapstructure:"api_key"  validate:"required"`
	// BaseURL overrides the endpoint for OpenAI-compatible providers.
	// Ignored for the gemini provider.
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model" validate:"required"`

	// Per-path compute timeouts, in seconds.
	SyncTimeoutSeconds   int `mapstructure:"sync_timeout_seconds"   validate:"required,gt=0"`
	FileTimeoutSeconds   int `mapstructure:"file_timeout_seconds"   validate:"required,gt=0"`
	StreamTimeoutSeconds int `mapstructure:"stream_timeout_seconds" validate:"required,gt=0"`
}

// TaskConfig contains the worker pool and task store settings.
type TaskConfig struct {
	MinWorkers           int `mapstructure:"min_workers"            validate:"required,gt=0"`
	MaxWorkers           int `mapstructure:"max_workers"            validate:"required,gtefield=MinWorkers"`
	QueueSize            int `mapstructure:"queue_size"             validate:"required,gt=0"`
	IdleTimeoutSeconds   int `mapstructure:"idle_timeout_seconds"   validate:"required,gt=0"`
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds" validate:"required,gt=0"`
	// RetentionMinutes bounds how long finished task entries stay readable.
	RetentionMinutes int `mapstructure:"retention_minutes" validate:"required,gt=0"`
}

// StreamConfig contains the streaming relay settings.
type StreamConfig struct {
	// TimeoutSeconds is the watchdog window for one streaming session.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	// ChunkDelayMillis paces chunk emission; zero disables pacing.
	ChunkDelayMillis int `mapstructure:"chunk_delay_millis" validate:"gte=0"`
}

// PersistenceConfig contains the conversation write retry settings.
type PersistenceConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"   validate:"required,gt=0"`
	TruncateChars int `mapstructure:"truncate_chars" validate:"required,gt=0"`
}
