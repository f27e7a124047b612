package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/mock"
	"ajala-hq/ajala/pkg/providers/registry"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
	"ajala-hq/ajala/pkg/telemetry/tracing"
	"ajala-hq/ajala/pkg/tokens"
)

var mockConfig = providers.ProviderConfig{
	Provider:    providers.Mock,
	Credentials: providers.Credentials{APIKey: "test-key"},
}

// newTestPipeline returns a pipeline whose mock provider is m and whose
// backoff waits are recorded instead of slept.
func newTestPipeline(t *testing.T, m *mock.Provider, opts ...Option) (*Pipeline, *[]time.Duration) {
	t.Helper()

	reg := registry.New(nil, registry.WithFactory(providers.Mock, func(registry.Entry) providers.Provider {
		return m
	}))
	t.Cleanup(func() { reg.Close() })

	var mu sync.Mutex
	waits := []time.Duration{}
	sleep := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return ctx.Err()
	}

	settings := config.DefaultSettings()
	settings.Retry = retry.Policy{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}

	opts = append([]Option{WithSleep(sleep)}, opts...)
	return New(settings, reg, opts...), &waits
}

func objectSchema() *schema.Schema {
	return &schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"result"},
		Properties: map[string]*schema.Schema{
			"result": {Type: schema.TypeString},
		},
	}
}

func TestExecute_EndToEnd(t *testing.T) {
	m := mock.New(mock.Config{}).Script(mock.Step{Content: `{"result":"ok"}`})
	p, _ := newTestPipeline(t, m)

	res, err := p.Execute(context.Background(), &Request{
		Template:  "Say {{word}}",
		Variables: map[string]string{"word": "ok"},
		Schema:    objectSchema(),
		Options:   Options{ExpectJSON: true, ValidateJSON: true},
	}, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if res.Validation == nil || !res.Validation.Valid {
		t.Fatalf("expected valid result, got %+v", res.Validation)
	}
	obj, ok := res.Parsed.(map[string]any)
	if !ok || obj["result"] != "ok" {
		t.Errorf("parsed = %#v, want result=ok", res.Parsed)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if res.Prompt != "Say ok" {
		t.Errorf("prompt = %q", res.Prompt)
	}
	if res.RequestID == "" {
		t.Error("expected a request ID")
	}

	calls := m.Calls()
	if len(calls) != 1 || !calls[0].Opts.ExpectJSON || calls[0].Opts.Model != mock.DefaultModel {
		t.Errorf("unexpected provider calls: %+v", calls)
	}
}

func TestExecute_RetryExhaustion(t *testing.T) {
	netErr := &providers.NetworkError{Provider: providers.Mock, Cause: errors.New("connection reset")}
	m := mock.New(mock.Config{}).Script(
		mock.Step{Err: netErr},
		mock.Step{Err: netErr},
		mock.Step{Err: netErr},
		mock.Step{Content: "never reached"},
	)
	p, waits := newTestPipeline(t, m)

	_, err := p.Execute(context.Background(), &Request{Template: "hi"}, mockConfig)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Code != codes.NetworkError {
		t.Errorf("code = %s, want %s", perr.Code, codes.NetworkError)
	}
	if perr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", perr.Attempts)
	}
	if len(m.Calls()) != 3 {
		t.Errorf("provider called %d times, want 3", len(m.Calls()))
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if fmt.Sprint(*waits) != fmt.Sprint(want) {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
	if !errors.Is(err, netErr) {
		t.Error("last provider error should be reachable through the chain")
	}
}

func TestExecute_NonRetryable(t *testing.T) {
	m := mock.New(mock.Config{}).Script(
		mock.Step{Err: &providers.APIError{Provider: providers.Mock, StatusCode: 400, Message: "bad request"}},
	)
	p, waits := newTestPipeline(t, m)

	_, err := p.Execute(context.Background(), &Request{Template: "hi"}, mockConfig)
	if codes.Of(err) != codes.APIError {
		t.Fatalf("code = %s, want API_ERROR", codes.Of(err))
	}
	if len(m.Calls()) != 1 || len(*waits) != 0 {
		t.Errorf("non-retryable error retried: calls=%d waits=%v", len(m.Calls()), *waits)
	}
}

func TestExecute_RetryThenSucceed(t *testing.T) {
	m := mock.New(mock.Config{}).Script(
		mock.Step{Err: &providers.RateLimitError{Provider: providers.Mock, Message: "slow down"}},
		mock.Step{Content: "fine"},
	)
	p, _ := newTestPipeline(t, m)

	res, err := p.Execute(context.Background(), &Request{Template: "hi"}, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if res.Attempts != 2 || res.Raw.Content != "fine" {
		t.Errorf("unexpected result: attempts=%d content=%q", res.Attempts, res.Raw.Content)
	}
}

func TestExecute_RetryOnFailOverride(t *testing.T) {
	netErr := &providers.NetworkError{Provider: providers.Mock, Cause: errors.New("reset")}
	m := mock.New(mock.Config{}).Script(mock.Step{Err: netErr}, mock.Step{Content: "ok"})
	p, _ := newTestPipeline(t, m)

	off := false
	_, err := p.Execute(context.Background(), &Request{
		Template: "hi",
		Options:  Options{RetryOnFail: &off},
	}, mockConfig)

	var perr *Error
	if !errors.As(err, &perr) || perr.Attempts != 1 {
		t.Fatalf("expected one attempt, got %v", err)
	}
}

func TestExecute_FailsBeforeDispatch(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		pc   providers.ProviderConfig
		want codes.Code
	}{
		{
			name: "missing variable",
			req:  &Request{Template: "Hello {{name}}"},
			pc:   mockConfig,
			want: codes.MissingVariable,
		},
		{
			name: "unsupported model",
			req:  &Request{Template: "hi"},
			pc:   providers.ProviderConfig{Provider: providers.Mock, Model: "gpt-4o", Credentials: mockConfig.Credentials},
			want: codes.UnsupportedModel,
		},
		{
			name: "missing credentials",
			req:  &Request{Template: "hi"},
			pc:   providers.ProviderConfig{Provider: providers.Mock},
			want: codes.MissingAuth,
		},
		{
			name: "bad schema",
			req: &Request{
				Template: "hi",
				Schema:   &schema.Schema{Type: "decimal"},
				Options:  Options{ExpectJSON: true, ValidateJSON: true},
			},
			pc:   mockConfig,
			want: codes.SchemaError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mock.New(mock.Config{})
			p, _ := newTestPipeline(t, m)

			_, err := p.Execute(context.Background(), tt.req, tt.pc)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if perr.Code != tt.want {
				t.Errorf("code = %s, want %s", perr.Code, tt.want)
			}
			if perr.Attempts != 0 || len(m.Calls()) != 0 {
				t.Errorf("provider was called: attempts=%d calls=%d", perr.Attempts, len(m.Calls()))
			}
		})
	}
}

func TestExecute_SchemaDepthFollowsSettings(t *testing.T) {
	deep := &schema.Schema{Type: schema.TypeString}
	for range 150 {
		deep = &schema.Schema{Type: schema.TypeObject, Properties: map[string]*schema.Schema{"a": deep}}
	}

	tests := []struct {
		name     string
		maxDepth int
		wantCode codes.Code
	}{
		{name: "default limit", maxDepth: 0, wantCode: codes.SchemaError},
		{name: "raised limit", maxDepth: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := config.DefaultSettings()
			if tt.maxDepth > 0 {
				settings.JSON.Limits.MaxDepth = tt.maxDepth
			}
			m := mock.New(mock.Config{}).Script(mock.Step{Content: `{}`})
			p, _ := newTestPipeline(t, m, WithSettingsSource(func() *config.Settings { return settings }))

			res, err := p.Execute(context.Background(), &Request{
				Template: "hi",
				Schema:   deep,
				Options:  Options{ExpectJSON: true, ValidateJSON: true},
			}, mockConfig)

			if tt.wantCode != "" {
				var perr *Error
				if !errors.As(err, &perr) || perr.Code != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if res.Validation == nil || !res.Validation.Valid {
				t.Errorf("expected valid result, got %+v", res.Validation)
			}
		})
	}
}

func TestExecute_Lenient(t *testing.T) {
	m := mock.New(mock.Config{})
	p, _ := newTestPipeline(t, m)

	res, err := p.Execute(context.Background(), &Request{
		Template: "Hello {{name}}",
		Options:  Options{Lenient: true},
	}, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if res.Prompt != "Hello {{name}}" {
		t.Errorf("prompt = %q", res.Prompt)
	}
}

func TestExecute_TrimPrompt(t *testing.T) {
	off := false
	tests := []struct {
		name string
		trim *bool
		want string
	}{
		{name: "default trims", want: "a b c"},
		{name: "explicit off", trim: &off, want: "  a \n\n b\tc  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, mock.New(mock.Config{}))
			res, err := p.Execute(context.Background(), &Request{
				Template:  "  a \n\n {{x}}\tc  ",
				Variables: map[string]string{"x": "b"},
				Options:   Options{TrimPrompt: tt.trim},
			}, mockConfig)
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if res.Prompt != tt.want {
				t.Errorf("prompt = %q, want %q", res.Prompt, tt.want)
			}
		})
	}
}

func TestExecute_SettingsSource(t *testing.T) {
	var mu sync.Mutex
	current := config.DefaultSettings()
	source := func() *config.Settings {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	p, _ := newTestPipeline(t, mock.New(mock.Config{}), WithSettingsSource(source))

	req := &Request{Template: "  a  b  "}
	res, err := p.Execute(context.Background(), req, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if res.Prompt != "a b" {
		t.Errorf("prompt = %q, want trimmed", res.Prompt)
	}

	reloaded := config.DefaultSettings()
	reloaded.TrimPrompt = false
	mu.Lock()
	current = reloaded
	mu.Unlock()

	res, err = p.Execute(context.Background(), req, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if res.Prompt != "  a  b  " {
		t.Errorf("prompt = %q, reloaded settings not applied", res.Prompt)
	}
	if p.Settings() != reloaded {
		t.Error("Settings() should return the source value")
	}
}

func TestExecute_JSONHandling(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		options    Options
		wantCode   codes.Code
		wantParsed bool
		wantValid  *bool
	}{
		{
			name:       "fenced json with autofix",
			content:    "Here you go:\n```json\n{\"result\": \"ok\"}\n```",
			options:    Options{ExpectJSON: true},
			wantParsed: true,
		},
		{
			name:       "embedded json with autofix",
			content:    `The answer is {"result": "ok"} as requested.`,
			options:    Options{ExpectJSON: true},
			wantParsed: true,
		},
		{
			name:     "autofix disabled",
			content:  "```json\n{\"result\": \"ok\"}\n```",
			options:  Options{ExpectJSON: true, ErrorOnInvalidJSON: true, JSON: &schema.Options{AutoFix: false}},
			wantCode: codes.ParsingError,
		},
		{
			name:    "not json, tolerated",
			content: "no json here",
			options: Options{ExpectJSON: true},
		},
		{
			name:     "not json, fatal",
			content:  "no json here",
			options:  Options{ExpectJSON: true, ErrorOnInvalidJSON: true},
			wantCode: codes.ParsingError,
		},
		{
			name:       "invalid value returned as data",
			content:    `{"other": 1}`,
			options:    Options{ExpectJSON: true, ValidateJSON: true},
			wantParsed: true,
			wantValid:  new(bool),
		},
		{
			name:     "invalid value fatal",
			content:  `{"other": 1}`,
			options:  Options{ExpectJSON: true, ValidateJSON: true, ErrorOnInvalidJSON: true},
			wantCode: codes.ValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mock.New(mock.Config{}).Script(mock.Step{Content: tt.content})
			p, _ := newTestPipeline(t, m)

			res, err := p.Execute(context.Background(), &Request{
				Template: "hi",
				Schema:   objectSchema(),
				Options:  tt.options,
			}, mockConfig)

			if tt.wantCode != "" {
				if codes.Of(err) != tt.wantCode {
					t.Fatalf("code = %q, want %q (err %v)", codes.Of(err), tt.wantCode, err)
				}
				if res != nil {
					t.Error("no partial result expected on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if (res.Parsed != nil) != tt.wantParsed {
				t.Errorf("parsed = %#v, wantParsed %v", res.Parsed, tt.wantParsed)
			}
			if !tt.wantParsed && res.ParseError == nil {
				t.Error("expected ParseError to be set")
			}
			if tt.wantValid != nil {
				if res.Validation == nil || res.Validation.Valid != *tt.wantValid {
					t.Errorf("validation = %+v, want valid=%v", res.Validation, *tt.wantValid)
				}
			}
		})
	}
}

func TestExecute_Coercion(t *testing.T) {
	m := mock.New(mock.Config{}).Script(mock.Step{Content: `{"age": "30"}`})
	p, _ := newTestPipeline(t, m)

	res, err := p.Execute(context.Background(), &Request{
		Template: "hi",
		Schema: &schema.Schema{
			Type:       schema.TypeObject,
			Properties: map[string]*schema.Schema{"age": {Type: schema.TypeNumber}},
		},
		Options: Options{ExpectJSON: true, ValidateJSON: true},
	}, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	obj := res.Parsed.(map[string]any)
	if obj["age"] != float64(30) {
		t.Errorf("age = %#v, want 30", obj["age"])
	}
	if len(res.Validation.Transformations) != 1 {
		t.Errorf("expected one transformation, got %+v", res.Validation.Transformations)
	}
}

func TestExecute_Timeout(t *testing.T) {
	m := mock.New(mock.Config{Delay: time.Second})
	p, _ := newTestPipeline(t, m)

	timeout := 20 * time.Millisecond
	start := time.Now()
	_, err := p.Execute(context.Background(), &Request{
		Template: "hi",
		Options:  Options{Timeout: &timeout},
	}, mockConfig)

	if codes.Of(err) != codes.TimeoutError {
		t.Fatalf("code = %q, want TIMEOUT_ERROR (err %v)", codes.Of(err), err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("deadline not enforced, took %v", elapsed)
	}
}

func TestExecute_RateLimited(t *testing.T) {
	m := mock.New(mock.Config{})
	limits := ratelimit.NewSet(map[string]ratelimit.Config{
		"mock": {RequestsPerMinute: 1, Burst: 1},
	})
	p, _ := newTestPipeline(t, m, WithRateLimits(limits))

	if _, err := p.Execute(context.Background(), &Request{Template: "first"}, mockConfig); err != nil {
		t.Fatalf("first request: %v", err)
	}

	timeout := 20 * time.Millisecond
	_, err := p.Execute(context.Background(), &Request{
		Template: "second",
		Options:  Options{Timeout: &timeout},
	}, mockConfig)
	if codes.Of(err) != codes.TimeoutError {
		t.Fatalf("code = %q, want TIMEOUT_ERROR (err %v)", codes.Of(err), err)
	}
	if n := len(m.Calls()); n != 1 {
		t.Errorf("throttled request reached the provider: %d calls", n)
	}
}

func TestExecute_RateLimitOtherProvider(t *testing.T) {
	m := mock.New(mock.Config{})
	limits := ratelimit.NewSet(map[string]ratelimit.Config{
		"openai": {RequestsPerMinute: 1, Burst: 1},
	})
	p, _ := newTestPipeline(t, m, WithRateLimits(limits))

	for i := range 3 {
		if _, err := p.Execute(context.Background(), &Request{Template: "hi"}, mockConfig); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
}

func TestExecute_EstimatedUsage(t *testing.T) {
	m := mock.New(mock.Config{}).Script(
		mock.Step{Content: "12345678", NoUsage: true},
		mock.Step{Content: "reported"},
	)
	p, _ := newTestPipeline(t, m, WithEstimator(tokens.New(tokens.Config{})))

	res, err := p.Execute(context.Background(), &Request{Template: "abcdefgh"}, mockConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !res.UsageEstimated {
		t.Fatal("expected usage to be estimated")
	}
	// 8 chars at 4 chars/token plus request and message overhead.
	u := res.Raw.Metadata.Usage
	if u.InputTokens != 9 || u.OutputTokens != 2 || u.TotalTokens != 11 {
		t.Errorf("unexpected estimated usage: %+v", u)
	}

	res, err = p.Execute(context.Background(), &Request{Template: "abcdefgh"}, mockConfig)
	if err != nil {
		t.Fatal(err)
	}
	if res.UsageEstimated || res.Raw.Metadata.Usage.TotalTokens != 30 {
		t.Errorf("reported usage must be kept: %+v", res.Raw.Metadata.Usage)
	}
}

func TestExecute_Cachable(t *testing.T) {
	on := true
	p, _ := newTestPipeline(t, mock.New(mock.Config{}))

	req := &Request{Template: "hi", Options: Options{Cachable: &on}}
	res, err := p.Execute(context.Background(), req, mockConfig)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	resolved := mockConfig
	resolved.Model = mock.DefaultModel
	if res.Fingerprint != Fingerprint(req, resolved) {
		t.Errorf("fingerprint = %q", res.Fingerprint)
	}
}

type memJournal struct {
	mu      sync.Mutex
	records []*journal.Record
}

func (j *memJournal) Record(ctx context.Context, rec *journal.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func TestExecute_Journal(t *testing.T) {
	j := &memJournal{}
	m := mock.New(mock.Config{}).Script(
		mock.Step{Content: "ok"},
		mock.Step{Err: &providers.AuthError{Provider: providers.Mock, Message: "revoked"}},
	)
	p, _ := newTestPipeline(t, m, WithJournal(j))

	if _, err := p.Execute(context.Background(), &Request{Template: "one"}, mockConfig); err != nil {
		t.Fatalf("first Execute() failed: %v", err)
	}
	if _, err := p.Execute(context.Background(), &Request{Template: "two"}, mockConfig); err == nil {
		t.Fatal("second Execute() should fail")
	}

	if len(j.records) != 2 {
		t.Fatalf("expected 2 journal records, got %d", len(j.records))
	}
	ok, failed := j.records[0], j.records[1]
	if ok.Status != journal.StatusSuccess || ok.InputTokens != 10 || ok.Fingerprint == "" {
		t.Errorf("unexpected success record: %+v", ok)
	}
	if failed.Status != journal.StatusError || failed.Code != string(codes.AuthError) || failed.Attempts != 1 {
		t.Errorf("unexpected failure record: %+v", failed)
	}
}

func TestExecute_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer, err := tracing.New(config.TracingConfig{
		Enabled:     true,
		Sampler:     tracing.SamplerAlways,
		ServiceName: "ajala-test",
	}, tracing.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("tracing.New() failed: %v", err)
	}
	defer tracer.Shutdown(context.Background())

	netErr := &providers.NetworkError{Provider: providers.Mock, Cause: errors.New("reset")}
	m := mock.New(mock.Config{}).Script(mock.Step{Err: netErr}, mock.Step{Content: "ok"})
	p, _ := newTestPipeline(t, m, WithTracer(tracer))

	if _, err := p.Execute(context.Background(), &Request{Template: "hi"}, mockConfig); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	counts := map[string]int{}
	for _, s := range recorder.Ended() {
		counts[s.Name()]++
	}
	if counts[tracing.SpanExecute] != 1 || counts[tracing.SpanAttempt] != 2 || counts[tracing.SpanRender] != 1 {
		t.Errorf("unexpected spans: %v", counts)
	}
}

func TestExecuteBatch(t *testing.T) {
	m := mock.New(mock.Config{})
	p, _ := newTestPipeline(t, m)

	items := []BatchItem{
		{Request: &Request{Template: "a"}, Provider: mockConfig},
		{Request: &Request{Template: "{{missing}}"}, Provider: mockConfig},
		{Request: &Request{Template: "c"}, Provider: mockConfig},
	}
	var mu sync.Mutex
	failed := 0
	results := p.ExecuteBatch(context.Background(), items, 2, OnResult(func(r BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err != nil {
			failed++
		}
	}))

	if failed != 1 {
		t.Errorf("OnResult saw %d failures, want 1", failed)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("independent items failed: %v, %v", results[0].Err, results[2].Err)
	}
	if codes.Of(results[1].Err) != codes.MissingVariable {
		t.Errorf("item 1 code = %s", codes.Of(results[1].Err))
	}
	if results[0].Result.Raw.Content != "Mock response for: a" {
		t.Errorf("item 0 content = %q", results[0].Result.Raw.Content)
	}
}
