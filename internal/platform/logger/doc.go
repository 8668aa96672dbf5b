// Package logger provides structured logging functionality for the
// application, built on log/slog with a JSON handler. It also carries
// request-scoped loggers through context so lower layers can log with the
// request's correlation attributes.
package logger
