// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// RunIDKey is the context key for the analysis run being executed
	RunIDKey contextKey = "run_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and run_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("run_id", runID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithRunID returns a logger with the analysis run ID
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("run_id", runID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// PipelineStage logs one stage of the scoring pipeline with its outcome.
// Degraded stages (rule-based cohorts, missing ridge model, no calibrator)
// log as warnings so operators can spot data-quality issues.
func (l *Logger) PipelineStage(runID, stage string, degraded bool, reason string) {
	if degraded {
		l.Warn("pipeline_stage",
			slog.String("run_id", runID),
			slog.String("stage", stage),
			slog.Bool("degraded", true),
			slog.String("reason", reason),
		)
		return
	}
	l.Info("pipeline_stage",
		slog.String("run_id", runID),
		slog.String("stage", stage),
		slog.Bool("degraded", false),
	)
}

// AnalysisEvent logs analysis run lifecycle transitions.
func (l *Logger) AnalysisEvent(event, runID, datasetID string) {
	l.Info("analysis_event",
		slog.String("event", event),
		slog.String("run_id", runID),
		slog.String("dataset_id", datasetID),
	)
}

// IngestWarnings logs the number of data-quality warnings raised for an upload.
func (l *Logger) IngestWarnings(datasetID string, rows, warnings int) {
	if warnings == 0 {
		l.Info("ingest_complete",
			slog.String("dataset_id", datasetID),
			slog.Int("rows", rows),
		)
		return
	}
	l.Warn("ingest_complete",
		slog.String("dataset_id", datasetID),
		slog.Int("rows", rows),
		slog.Int("warnings", warnings),
	)
}

// RateLimitExceeded logs rate limit violations
func (l *Logger) RateLimitExceeded(ip, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("ip", ip),
		slog.String("path", path),
	)
}
