package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"ajala-hq/ajala/pkg/config"
)

func newTestLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.Writer = buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json", RedactSecrets: true}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "valid console config", config: Config{Level: "WARN", Format: "console"}},
		{name: "empty config", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "invalid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.LoggingConfig{Level: "debug", Format: "json", RedactSecrets: true}, nil)
	if c.Level != "debug" || c.Format != "json" || !c.RedactSecrets {
		t.Errorf("unexpected config: %+v", c)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn", Format: "json"})

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("messages below warn should be dropped, got %q", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("warn message missing: %q", buf.String())
	}
	if logger.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v, want warn", logger.Level())
	}
}

func TestLogger_Redaction(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactSecrets: true})

	logger.Info("calling with key sk-ant-REDACTED",
		"api_key", "sk-abcdefghijklmnop",
		"header", "Bearer abc.def.ghi",
		"total_tokens", 30,
		"error", errors.New("rejected key sk-proj-abcdefghijkl"),
	)

	entry := decodeLine(t, buf)
	if msg := entry["msg"].(string); strings.Contains(msg, "abcdefghijklmnop") {
		t.Errorf("message not redacted: %q", msg)
	}
	if got := entry["api_key"]; got != "sk-a***" {
		t.Errorf("api_key = %v, want sk-a***", got)
	}
	if got := entry["header"]; got != "Bearer ***" {
		t.Errorf("header = %v, want Bearer ***", got)
	}
	if got := entry["total_tokens"]; got != float64(30) {
		t.Errorf("total_tokens should not be redacted, got %v", got)
	}
	if got := entry["error"].(string); strings.Contains(got, "abcdefghijkl") {
		t.Errorf("error not redacted: %q", got)
	}
}

func TestLogger_NoRedaction(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("raw", "api_key", "sk-abcdefghijklmnop")
	if got := decodeLine(t, buf)["api_key"]; got != "sk-abcdefghijklmnop" {
		t.Errorf("api_key = %v, want raw value when redaction is off", got)
	}
}

func TestLogger_WithRedactsAttrs(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactSecrets: true})

	logger.With("secret", "hunter2-hunter2").Slog().Info("derived")

	if got := decodeLine(t, buf)["secret"]; got != "hunt***" {
		t.Errorf("secret = %v, want hunt***", got)
	}
}

func TestLogger_GroupRedaction(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactSecrets: true})

	logger.Info("grouped", slog.Group("auth", slog.String("token", "abcdefghijkl")))

	group, ok := decodeLine(t, buf)["auth"].(map[string]any)
	if !ok {
		t.Fatalf("expected auth group")
	}
	if group["token"] != "abcd***" {
		t.Errorf("token = %v, want abcd***", group["token"])
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithProvider(ctx, "mock")
	ctx = WithModel(ctx, "mock-model-1")
	logger.InfoContext(ctx, "attempt")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-123" || entry["provider"] != "mock" || entry["model"] != "mock-model-1" {
		t.Errorf("context fields missing: %v", entry)
	}
}

func TestLogger_Formats(t *testing.T) {
	tests := []struct {
		format   string
		contains string
		noTime   bool
	}{
		{format: "json", contains: `"msg":"hello"`},
		{format: "text", contains: "msg=hello"},
		{format: "console", contains: "msg=hello", noTime: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			logger, buf := newTestLogger(t, Config{Format: tt.format})
			logger.Info("hello")
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output %q should contain %q", out, tt.contains)
			}
			if tt.noTime && strings.Contains(out, "time=") {
				t.Errorf("console output should omit time: %q", out)
			}
		})
	}
}

func TestLogger_AddSource(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "json", AddSource: true})
	logger.Info("with source")
	if _, ok := decodeLine(t, buf)["source"]; !ok {
		t.Error("expected source field")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if FieldsFrom(ctx) != (Fields{}) || len(contextAttrs(ctx)) != 0 {
		t.Error("empty context should yield no fields")
	}

	ctx = WithModel(WithRequestID(ctx, "a"), "m")
	if got := FieldsFrom(ctx); got != (Fields{RequestID: "a", Model: "m"}) {
		t.Errorf("fields = %+v", got)
	}
	if GetRequestID(ctx) != "a" {
		t.Error("request ID not stored")
	}
	if n := len(contextAttrs(ctx)); n != 2 {
		t.Errorf("contextAttrs returned %d attrs, want 2", n)
	}

	parent := WithProvider(context.Background(), "openai")
	_ = WithProvider(parent, "claude")
	if FieldsFrom(parent).Provider != "openai" {
		t.Error("deriving a context must not change its parent")
	}
}

func TestContextAttrs_Span(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	attrs := contextAttrs(ctx)
	if len(attrs) != 2 || attrs[0].Key != "trace_id" || attrs[0].Value.String() != sc.TraceID().String() {
		t.Errorf("unexpected span attrs: %v", attrs)
	}
}
