package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/registry"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
	"ajala-hq/ajala/pkg/telemetry/logging"
	"ajala-hq/ajala/pkg/telemetry/metrics"
	"ajala-hq/ajala/pkg/telemetry/tracing"
	"ajala-hq/ajala/pkg/template"
	"ajala-hq/ajala/pkg/tokens"
)

// Journal receives one record per Execute. *journal.Recorder implements it.
type Journal interface {
	Record(ctx context.Context, rec *journal.Record) error
}

// Pipeline executes prompt requests: render, dispatch with retry, parse
// and validate. It is safe for concurrent use; each Execute is
// independent.
type Pipeline struct {
	settings *config.Settings
	source   func() *config.Settings
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	journal  Journal
	limits   ratelimit.Set
	tokens   *tokens.Estimator
	sleep    retry.SleepFunc
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records Prometheus metrics for every run.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithTracer traces every run.
func WithTracer(t *tracing.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithJournal records every run.
func WithJournal(j Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithRateLimits throttles provider calls. Every attempt, retries
// included, waits for a slot from the limiter of its provider.
func WithRateLimits(s ratelimit.Set) Option {
	return func(p *Pipeline) { p.limits = s }
}

// WithEstimator fills in estimated usage when a provider reports none.
func WithEstimator(e *tokens.Estimator) Option {
	return func(p *Pipeline) { p.tokens = e }
}

// WithSettingsSource makes every Execute read its settings from fn, so a
// reloaded configuration applies to runs that start afterwards.
// *config.Holder's Settings method fits. A nil result falls back to the
// settings passed to New.
func WithSettingsSource(fn func() *config.Settings) Option {
	return func(p *Pipeline) { p.source = fn }
}

// WithSleep replaces the backoff wait.
func WithSleep(s retry.SleepFunc) Option {
	return func(p *Pipeline) { p.sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. A nil settings value selects
// config.DefaultSettings().
func New(settings *config.Settings, reg *registry.Registry, opts ...Option) *Pipeline {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	p := &Pipeline{
		settings: settings,
		registry: reg,
		logger:   slog.Default(),
		sleep:    retry.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

// Settings returns the settings the next Execute will use.
func (p *Pipeline) Settings() *config.Settings {
	if p.source != nil {
		if s := p.source(); s != nil {
			return s
		}
	}
	return p.settings
}

// run carries the state of one Execute for the final report.
type run struct {
	requestID   string
	fingerprint string
	provider    providers.Name
	model       string
	start       time.Time
	attempts    int
	resp        *providers.Response
	validation  *schema.Result
}

// Execute runs req against the provider selected by pc. Every failure is a
// *Error; on failure no partial result is returned.
func (p *Pipeline) Execute(ctx context.Context, req *Request, pc providers.ProviderConfig) (*Result, error) {
	r := &run{
		requestID: logging.GetRequestID(ctx),
		provider:  pc.Provider,
		model:     pc.Model,
		start:     p.now(),
	}
	if r.requestID == "" {
		r.requestID = uuid.NewString()
		ctx = logging.WithRequestID(ctx, r.requestID)
	}

	ctx, span := p.tracer.StartExecute(ctx, r.requestID, string(pc.Provider), pc.Model)
	defer span.End()

	res, err := p.execute(ctx, span, r, req, pc)
	p.report(ctx, span, r, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, span trace.Span, r *run, req *Request, pc providers.ProviderConfig) (*Result, error) {
	if req == nil {
		return nil, newError(r.requestID, 0, codes.New(codes.InvalidConfig, "pipeline.execute", "request is nil"))
	}
	eff := resolve(p.Settings(), req.Options)

	if p.registry == nil {
		return nil, newError(r.requestID, 0, codes.New(codes.InvalidConfig, "pipeline.execute", "no provider registry configured"))
	}
	provider, model, err := p.registry.Resolve(ctx, pc)
	if err != nil {
		return nil, newError(r.requestID, 0, err)
	}
	r.model = model
	tracing.SetProviderAttributes(span, string(pc.Provider), model)
	ctx = logging.WithModel(logging.WithProvider(ctx, string(pc.Provider)), model)

	resolved := pc
	resolved.Model = model
	r.fingerprint = Fingerprint(req, resolved)
	tracing.NewAttributeBuilder().WithFingerprint(r.fingerprint).Apply(span)

	if req.Options.ValidateJSON && req.Schema != nil {
		if err := req.Schema.CheckWithLimits(eff.json.Limits); err != nil {
			return nil, newError(r.requestID, 0, err)
		}
	}

	prompt, err := p.render(ctx, req, eff)
	if err != nil {
		return nil, newError(r.requestID, 0, err)
	}
	if eff.debug {
		p.logger.DebugContext(ctx, "rendered prompt", "prompt", prompt)
	}

	resp, err := p.dispatch(ctx, r, provider, prompt, req, eff)
	if err != nil {
		return nil, newError(r.requestID, r.attempts, err)
	}
	estimated := p.estimateUsage(resp, prompt, req)
	r.resp = resp
	if eff.debug {
		p.logger.DebugContext(ctx, "raw response", "content", resp.Content)
	}

	result := &Result{
		RequestID: r.requestID,
		Prompt:    prompt,
		Raw:       resp,
		Attempts:  r.attempts,

		UsageEstimated: estimated,
	}
	if eff.cachable {
		result.Fingerprint = r.fingerprint
	}

	if !req.Options.ExpectJSON {
		return result, nil
	}

	_, parseSpan := p.tracer.Start(ctx, tracing.SpanParse)
	parsed, err := ParseJSON(resp.Content, eff.json.AutoFix)
	tracing.SetStatus(parseSpan, err)
	parseSpan.End()
	if err != nil {
		if req.Options.ErrorOnInvalidJSON {
			return nil, newError(r.requestID, r.attempts, err)
		}
		p.logger.WarnContext(ctx, "response is not valid JSON", "error", err)
		result.ParseError = err
		return result, nil
	}
	result.Parsed = parsed

	if !req.Options.ValidateJSON || req.Schema == nil {
		return result, nil
	}

	_, valSpan := p.tracer.Start(ctx, tracing.SpanValidate)
	vres := schema.Validate(parsed, req.Schema, eff.json)
	tracing.SetValidationAttributes(valSpan, vres.Valid, len(vres.Issues), len(vres.Transformations))
	valSpan.End()

	r.validation = vres
	p.metrics.RecordValidation(vres)

	if !vres.Valid && req.Options.ErrorOnInvalidJSON {
		return nil, newError(r.requestID, r.attempts, vres.Err())
	}
	result.Parsed = vres.Value
	result.Validation = vres
	return result, nil
}

// estimateUsage fills resp's usage from text length when the provider
// reported none. It reports whether it did.
func (p *Pipeline) estimateUsage(resp *providers.Response, prompt string, req *Request) bool {
	if p.tokens == nil || resp.Metadata.Usage != (providers.Usage{}) {
		return false
	}
	in := p.tokens.Prompt(prompt, req.Options.System, resp.Model, 0).InputTokens
	out := p.tokens.Text(resp.Content, resp.Model)
	resp.Metadata.Usage = providers.Usage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}
	return true
}

func (p *Pipeline) render(ctx context.Context, req *Request, eff effective) (string, error) {
	_, span := p.tracer.Start(ctx, tracing.SpanRender)
	defer span.End()

	var opts []template.Option
	if req.Options.Lenient {
		opts = append(opts, template.WithLenient())
	}
	prompt, err := template.Render(req.Template, req.Variables, opts...)
	if err != nil {
		tracing.SetErrorAttributes(span, err)
		return "", err
	}
	if eff.trimPrompt {
		prompt = strings.Join(strings.Fields(prompt), " ")
	}
	return prompt, nil
}

// dispatch sends the prompt under the effective retry policy. All attempts
// share one deadline.
func (p *Pipeline) dispatch(ctx context.Context, r *run, provider providers.Provider, prompt string, req *Request, eff effective) (*providers.Response, error) {
	if eff.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eff.timeout)
		defer cancel()
	}

	opts := providers.SendOptions{
		Model:       r.model,
		ExpectJSON:  req.Options.ExpectJSON,
		MaxTokens:   req.Options.MaxTokens,
		Temperature: req.Options.Temperature,
		System:      req.Options.System,
	}
	name := string(r.provider)
	execSpan := trace.SpanFromContext(ctx)

	op := func(ctx context.Context, attempt int) (*providers.Response, error) {
		r.attempts = attempt
		ctx, span := p.tracer.StartAttempt(ctx, attempt)
		defer span.End()

		release, waited, err := p.limits.Get(name).Acquire(ctx)
		if err != nil {
			err = &providers.TimeoutError{Provider: r.provider, Cause: err}
			tracing.SetErrorAttributes(span, err)
			return nil, err
		}
		defer release()
		if waited > time.Millisecond {
			p.logger.DebugContext(ctx, "provider call rate limited",
				"attempt", attempt,
				"waited", waited,
			)
		}

		start := time.Now()
		resp, err := provider.SendPrompt(ctx, prompt, opts)
		p.metrics.RecordAttempt(name, r.model, time.Since(start))
		if err != nil {
			code := codes.Of(err)
			p.metrics.RecordProviderError(name, code.Name())
			tracing.SetErrorAttributes(span, err)
			p.logger.DebugContext(ctx, "provider attempt failed",
				"attempt", attempt,
				"code", code,
				"error", err,
			)
			return nil, err
		}
		tracing.SetTokenAttributes(span, resp.Metadata.Usage.InputTokens, resp.Metadata.Usage.OutputTokens)
		tracing.SetStatus(span, nil)
		return resp, nil
	}

	observe := func(ev retry.Event) {
		p.metrics.RecordRetry(name, ev.Code.Name())
		tracing.AddEvent(execSpan, "retry_scheduled",
			attribute.Int(tracing.AttrAttempt, ev.Attempt),
			attribute.String("delay", ev.Delay.String()),
			attribute.String(tracing.AttrErrorCode, string(ev.Code)),
		)
		p.logger.WarnContext(ctx, "retrying provider call",
			"attempt", ev.Attempt,
			"delay", ev.Delay,
			"code", ev.Code,
			"error", ev.Err,
		)
	}

	resp, err := retry.Do(ctx, eff.policy, op,
		retry.WithObserver(observe),
		retry.WithSleep(p.sleep),
	)
	if hr, ok := provider.(interface{ IsHealthy() bool }); ok {
		p.metrics.UpdateProviderHealth(name, hr.IsHealthy())
	}
	return resp, err
}

// report logs, measures, traces and journals a finished run.
func (p *Pipeline) report(ctx context.Context, span trace.Span, r *run, err error) {
	latency := p.now().Sub(r.start)
	name := string(r.provider)

	status := journal.StatusSuccess
	metricStatus := "success"
	var code codes.Code
	if err != nil {
		status = journal.StatusError
		code = codes.Of(err)
		metricStatus = code.Name()
	}

	var in, out int
	if r.resp != nil {
		in = r.resp.Metadata.Usage.InputTokens
		out = r.resp.Metadata.Usage.OutputTokens
		p.metrics.RecordTokens(name, r.model, in, out)
		tracing.SetTokenAttributes(span, in, out)
	}
	p.metrics.RecordRequest(name, r.model, metricStatus, latency, r.attempts)
	tracing.NewAttributeBuilder().WithAttempts(r.attempts).Apply(span)

	if err != nil {
		tracing.SetErrorAttributes(span, err)
		level := slog.LevelError
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "request failed",
			"provider", name,
			"model", r.model,
			"code", code,
			"attempts", r.attempts,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
	} else {
		tracing.SetStatus(span, nil)
		p.logger.InfoContext(ctx, "request completed",
			"provider", name,
			"model", r.model,
			"attempts", r.attempts,
			"latency_ms", latency.Milliseconds(),
			"input_tokens", in,
			"output_tokens", out,
		)
	}

	if p.journal == nil {
		return
	}
	rec := &journal.Record{
		RequestID:    r.requestID,
		Fingerprint:  r.fingerprint,
		Provider:     name,
		Model:        r.model,
		Status:       status,
		Code:         string(code),
		Attempts:     r.attempts,
		Latency:      latency,
		InputTokens:  in,
		OutputTokens: out,
		Valid:        err == nil && (r.validation == nil || r.validation.Valid),
		CreatedAt:    r.start,
	}
	if r.validation != nil {
		rec.IssueCount = len(r.validation.Issues)
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := p.journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		p.logger.WarnContext(ctx, "failed to journal run", "error", jerr)
	}
}
