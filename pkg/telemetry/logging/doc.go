// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps log/slog and adds:
//   - JSON, text and console formats
//   - Redaction of API keys, bearer tokens and credential fields
//   - Request id, provider and model taken from the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "attempt failed",
//	    "api_key", "sk-abc123",  // masked
//	    "attempt", 2,
//	)
//
// Lines logged with a context also carry its request fields and the
// trace_id and span_id of the active span.
//
// Redaction runs in the handler, so components holding the *slog.Logger
// returned by Slog are covered as well.
package logging
