package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Default transport settings.
const (
	DefaultHTTPTimeout         = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultUnhealthyThreshold  = 3
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, failure classification and health
// tracking. Each call makes exactly one attempt.
//
// Concrete adapters (Anthropic, OpenAI) embed this struct.
type HTTPProvider struct {
	// config contains the transport configuration
	config HTTPConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the provider's health status
	health Health

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex

	logger *slog.Logger
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config HTTPConfig) *HTTPProvider {
	if config.Timeout <= 0 {
		config.Timeout = DefaultHTTPTimeout
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = DefaultMaxIdleConns
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if config.UnhealthyThreshold <= 0 {
		config.UnhealthyThreshold = DefaultUnhealthyThreshold
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
		logger: slog.Default().With("component", "provider", "provider", string(config.Name)),
	}
}

// Config returns the transport configuration.
func (p *HTTPProvider) Config() HTTPConfig {
	return p.config
}

// Do performs a single HTTP request. A 2xx response is returned to the
// caller, who must close its body; anything else is classified into one of
// the typed errors of this package.
func (p *HTTPProvider) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &ConfigError{Provider: p.config.Name, Field: "base_url", Message: err.Error()}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	p.logger.Debug("sending request to provider",
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		classified := p.classifyTransport(ctx, err)
		p.record(false, classified)
		return nil, classified
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.record(true, nil)
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()

	classified := ClassifyStatus(p.config.Name, resp.StatusCode, resp.Header, errorBody)
	p.record(false, classified)

	p.logger.Warn("provider returned error status",
		"status", resp.StatusCode,
		"error", classified,
	)
	return nil, classified
}

// DoJSON performs a JSON request and decodes the response into respBody.
func (p *HTTPProvider) DoJSON(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.Do(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return &TimeoutError{Provider: p.config.Name, Cause: ctx.Err()}
		}
		return &NetworkError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: truncate(string(responseBytes), maxErrorMessage),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// classifyTransport maps a client.Do failure. Context expiry and client
// timeouts become *TimeoutError; everything else is a *NetworkError.
func (p *HTTPProvider) classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TimeoutError{Provider: p.config.Name, Cause: ctxErr}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: err}
	}
	return &NetworkError{Provider: p.config.Name, Cause: err}
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
