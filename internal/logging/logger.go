// Package logging defines a minimal structured-logging interface used across
// the project. Implementations wrap slog and zerolog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "user logged in", "user_id", id, "request_id", reqID)
type Logger interface {
	// Debug logs diagnostic detail, such as dev-mode reset links.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// New builds the logger selected by format: "console" gives a human-readable
// zerolog console writer, anything else a JSON slog handler on stdout.
func New(format string, environment string) Logger {
	if format == "console" {
		return NewConsoleZerologLogger(environment)
	}
	return NewJSONSlogLogger(environment)
}
