package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithLogger stores logger in ctx. The trace middleware uses it to attach
// the request-scoped logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request at a level derived from
// the status code
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionsCreated logs a successful single or bulk insert
func (sl *StructuredLogger) LogTransactionsCreated(ctx context.Context, userID string, count int, op string) {
	fields := NewFields().
		WithUserID(userID).
		WithCount(count).
		WithOperation(op).
		WithComponent(ComponentTransaction)

	sl.logger.Logger.InfoContext(ctx, "Transactions created", fields.ToSlice()...)
}

// LogImport logs the outcome of an import batch
func (sl *StructuredLogger) LogImport(ctx context.Context, userID, accountID, source string, rows int, err error) {
	fields := NewFields().
		WithUserID(userID).
		WithAccount(accountID).
		WithCount(rows).
		WithOperation(OpImport).
		WithComponent(ComponentImport).
		WithError(err)
	fields[FieldSource] = source

	if err != nil {
		sl.logger.Logger.WarnContext(ctx, "Import rejected", fields.ToSlice()...)
		return
	}
	sl.logger.Logger.InfoContext(ctx, "Import completed", fields.ToSlice()...)
}

// LogSummary logs a computed summary
func (sl *StructuredLogger) LogSummary(ctx context.Context, userID, accountID, from, to string, durationMs int64) {
	fields := NewFields().
		WithUserID(userID).
		WithAccount(accountID).
		WithRange(from, to).
		WithOperation(OpSummarize).
		WithComponent(ComponentSummary)
	fields[FieldDuration] = durationMs

	sl.logger.Logger.DebugContext(ctx, "Summary computed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
