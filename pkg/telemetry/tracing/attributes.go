package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ajala-hq/ajala/pkg/codes"
)

// Span names.
const (
	SpanExecute  = "pipeline.execute"
	SpanRender   = "template.render"
	SpanAttempt  = "provider.attempt"
	SpanParse    = "response.parse"
	SpanValidate = "schema.validate"
)

// Attribute keys. Domain attributes live under "ajala.*".
const (
	AttrProvider    = "ajala.provider"
	AttrModel       = "ajala.model"
	AttrRequestID   = "ajala.request_id"
	AttrFingerprint = "ajala.fingerprint"

	AttrAttempt  = "ajala.attempt"
	AttrAttempts = "ajala.attempts"

	AttrTokensInput  = "ajala.tokens.input"
	AttrTokensOutput = "ajala.tokens.output"
	AttrTokensTotal  = "ajala.tokens.total"

	AttrValid           = "ajala.validation.valid"
	AttrIssues          = "ajala.validation.issues"
	AttrTransformations = "ajala.validation.transformations"

	AttrErrorCode    = "ajala.error.code"
	AttrErrorMessage = "error.message"
)

// StartExecute opens the root span of one pipeline run.
func (t *Tracer) StartExecute(ctx context.Context, requestID, provider, model string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanExecute,
		trace.WithSpanKind(trace.SpanKindInternal),
		NewAttributeBuilder().WithRequest(requestID).WithProvider(provider, model).Build(),
	)
}

// StartAttempt opens a client span for one provider call.
func (t *Tracer) StartAttempt(ctx context.Context, attempt int) (context.Context, trace.Span) {
	return t.Start(ctx, SpanAttempt,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int(AttrAttempt, attempt)),
	)
}

// SetProviderAttributes sets provider and model on a span.
func SetProviderAttributes(span trace.Span, provider, model string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
}

// SetTokenAttributes sets token counts on a span.
func SetTokenAttributes(span trace.Span, input, output int) {
	span.SetAttributes(
		attribute.Int(AttrTokensInput, input),
		attribute.Int(AttrTokensOutput, output),
		attribute.Int(AttrTokensTotal, input+output),
	)
}

// SetValidationAttributes records the outcome of schema validation.
func SetValidationAttributes(span trace.Span, valid bool, issues, transformations int) {
	span.SetAttributes(
		attribute.Bool(AttrValid, valid),
		attribute.Int(AttrIssues, issues),
		attribute.Int(AttrTransformations, transformations),
	)
}

// SetErrorAttributes records err on the span, tags it with its error code
// and marks the span failed.
func SetErrorAttributes(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorCode, string(codes.Of(err))),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

// AddEvent adds a named event to the span.
//
//	AddEvent(span, "retry_scheduled", attribute.String("delay", "20ms"))
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithProvider adds provider and model attributes.
func (ab *AttributeBuilder) WithProvider(provider, model string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
	return ab
}

// WithRequest adds the request ID. Empty IDs are skipped.
func (ab *AttributeBuilder) WithRequest(requestID string) *AttributeBuilder {
	if requestID != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrRequestID, requestID))
	}
	return ab
}

// WithFingerprint adds the request fingerprint.
func (ab *AttributeBuilder) WithFingerprint(fp string) *AttributeBuilder {
	if fp != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrFingerprint, fp))
	}
	return ab
}

// WithTokens adds token count attributes.
func (ab *AttributeBuilder) WithTokens(input, output int) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Int(AttrTokensInput, input),
		attribute.Int(AttrTokensOutput, output),
		attribute.Int(AttrTokensTotal, input+output),
	)
	return ab
}

// WithAttempts adds the number of provider calls made.
func (ab *AttributeBuilder) WithAttempts(n int) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.Int(AttrAttempts, n))
	return ab
}

// WithCustom adds a custom attribute.
func (ab *AttributeBuilder) WithCustom(key string, value any) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
