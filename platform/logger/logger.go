// Package logger provides structured logging for the lead engine.
// It is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for the acting user ID.
	UserIDKey contextKey = "user_id"
	// TaskIDKey is the context key for a background task ID.
	TaskIDKey contextKey = "task_id"
)

// Logger wraps slog.Logger with a few domain event helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger for the given environment. Development gets a text
// handler at debug level, everything else JSON at info.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit output, used by tests and the CLI.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger carrying request, user and task IDs found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		out = out.WithRequestID(v)
	}
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		out = out.WithUserID(v)
	}
	if v, ok := ctx.Value(TaskIDKey).(string); ok && v != "" {
		out = &Logger{Logger: out.With(slog.String("task_id", v))}
	}
	return out
}

// WithRequestID returns a logger with the request ID attached.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With(slog.String("request_id", requestID))}
}

// WithUserID returns a logger with the user ID attached.
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{Logger: l.With(slog.String("user_id", userID))}
}

// WithComponent tags every record with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With(slog.String("component", name))}
}

// HTTPRequest logs a completed HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs a request that ended in a server error.
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// IntakeOutcome logs the result of processing one inbound message or candidate.
func (l *Logger) IntakeOutcome(source, outcome, leadID string) {
	l.Info("intake_outcome",
		slog.String("source", source),
		slog.String("outcome", outcome),
		slog.String("lead_id", leadID),
	)
}

// Assignment logs an assignment attempt.
func (l *Logger) Assignment(leadID, agentID, mode string, ok bool) {
	level := slog.LevelInfo
	if !ok {
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "lead_assignment",
		slog.String("lead_id", leadID),
		slog.String("agent_id", agentID),
		slog.String("mode", mode),
		slog.Bool("assigned", ok),
	)
}

// DatabaseError logs a failed database operation.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs a rejected request.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
