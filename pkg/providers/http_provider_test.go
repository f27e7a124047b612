package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ajala-hq/ajala/pkg/codes"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider_SingleAttemptOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
	})

	p := NewHTTPProvider(HTTPConfig{Name: OpenAI, BaseURL: srv.URL})
	defer p.Close()

	err := p.DoJSON(context.Background(), "POST", srv.URL+"/x", map[string]string{"a": "b"}, nil, nil)
	if codes.Of(err) != codes.ProviderUnavailable {
		t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", calls.Load())
	}
}

func TestHTTPProvider_DoJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing JSON content type")
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("custom header not forwarded")
		}
		_, _ = w.Write([]byte(`{"value":42}`))
	})

	p := NewHTTPProvider(HTTPConfig{Name: Claude, BaseURL: srv.URL})
	defer p.Close()

	var out struct {
		Value int `json:"value"`
	}
	err := p.DoJSON(context.Background(), "POST", srv.URL, struct{}{}, &out, map[string]string{"X-Test": "1"})
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Value != 42 {
		t.Errorf("expected 42, got %d", out.Value)
	}
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":`))
	})

	p := NewHTTPProvider(HTTPConfig{Name: Claude})
	defer p.Close()

	var out map[string]any
	err := p.DoJSON(context.Background(), "GET", srv.URL, nil, &out, nil)
	if codes.Of(err) != codes.ResponseInvalid {
		t.Fatalf("expected RESPONSE_INVALID, got %v", err)
	}
}

func TestHTTPProvider_ContextDeadline(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	p := NewHTTPProvider(HTTPConfig{Name: Claude})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.DoJSON(ctx, "GET", srv.URL, nil, nil, nil)
	if codes.Of(err) != codes.TimeoutError {
		t.Fatalf("expected TIMEOUT_ERROR, got %v", err)
	}
}

func TestHTTPProvider_ClientTimeout(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	p := NewHTTPProvider(HTTPConfig{Name: Claude, Timeout: 30 * time.Millisecond})
	defer p.Close()

	err := p.DoJSON(context.Background(), "GET", srv.URL, nil, nil, nil)
	if codes.Of(err) != codes.TimeoutError {
		t.Fatalf("expected TIMEOUT_ERROR, got %v", err)
	}
}

func TestHTTPProvider_InvalidURL(t *testing.T) {
	p := NewHTTPProvider(HTTPConfig{Name: Claude})
	defer p.Close()

	err := p.DoJSON(context.Background(), "GET", "://bad", nil, nil, nil)
	if codes.Of(err) != codes.InvalidConfig {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestHTTPProvider_Defaults(t *testing.T) {
	p := NewHTTPProvider(HTTPConfig{Name: Mock})
	cfg := p.Config()

	if cfg.Timeout != DefaultHTTPTimeout ||
		cfg.MaxIdleConns != DefaultMaxIdleConns ||
		cfg.MaxIdleConnsPerHost != DefaultMaxIdleConnsPerHost ||
		cfg.IdleConnTimeout != DefaultIdleConnTimeout ||
		cfg.UnhealthyThreshold != DefaultUnhealthyThreshold {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
