package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Fields are the request-scoped values every log line inside a pipeline
// run carries.
type Fields struct {
	RequestID string
	Provider  string
	Model     string
}

type fieldsKey struct{}

// FieldsFrom returns the fields stored in ctx, zero when there are none.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func withFields(ctx context.Context, fn func(*Fields)) context.Context {
	f := FieldsFrom(ctx)
	fn(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID stores the request ID. Execute reuses it instead of
// generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *Fields) { f.RequestID = id })
}

// WithProvider stores the provider name.
func WithProvider(ctx context.Context, provider string) context.Context {
	return withFields(ctx, func(f *Fields) { f.Provider = provider })
}

// WithModel stores the model name.
func WithModel(ctx context.Context, model string) context.Context {
	return withFields(ctx, func(f *Fields) { f.Model = model })
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	return FieldsFrom(ctx).RequestID
}

// contextAttrs returns the stored fields plus the IDs of the active span,
// so log lines can be joined with traces.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	f := FieldsFrom(ctx)
	for _, kv := range [...][2]string{
		{"request_id", f.RequestID},
		{"provider", f.Provider},
		{"model", f.Model},
	} {
		if kv[1] != "" {
			attrs = append(attrs, slog.String(kv[0], kv[1]))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
