package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefix QA_, nesting with underscores, e.g.
// QA_SERVER_PORT) take precedence over values from config.yaml.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default values mirroring the documented
// behavior of the service: 5/20 workers over a 100-slot queue, 120s stream
// window, 3 persistence attempts with a 5,000 character degrade limit.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "qwen-max")
	v.SetDefault("llm.sync_timeout_seconds", 30)
	v.SetDefault("llm.file_timeout_seconds", 30)
	v.SetDefault("llm.stream_timeout_seconds", 60)

	v.SetDefault("task.min_workers", 5)
	v.SetDefault("task.max_workers", 20)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.idle_timeout_seconds", 60)
	v.SetDefault("task.shutdown_grace_seconds", 60)
	v.SetDefault("task.retention_minutes", 30)

	v.SetDefault("stream.timeout_seconds", 120)
	v.SetDefault("stream.chunk_delay_millis", 30)

	v.SetDefault("persistence.max_attempts", 3)
	v.SetDefault("persistence.truncate_chars", 5000)
}
