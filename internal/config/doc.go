// Package config defines the application configuration structure and the
// loader that populates it from environment variables and an optional
// config file. Environment variables take precedence over file values.
package config
