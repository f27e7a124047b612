// Package providers implements a unified abstraction over LLM backends.
//
// # Overview
//
// Every backend (Claude, OpenAI and a deterministic mock) implements the
// Provider interface. A provider takes a rendered prompt and returns a
// normalized Response, or fails with one of a closed set of typed errors
// that the retry layer classifies by code:
//
//	*NetworkError      NETWORK_ERROR         retryable
//	*TimeoutError      TIMEOUT_ERROR         retryable
//	*RateLimitError    RATE_LIMIT_ERROR      retryable, carries Retry-After
//	*UnavailableError  PROVIDER_UNAVAILABLE  retryable
//	*AuthError         AUTH_ERROR / MISSING_AUTH
//	*APIError          API_ERROR
//	*ParseError        RESPONSE_INVALID
//
// # Architecture
//
//  1. Provider Interface - the contract all adapters implement
//  2. Base HTTP Provider - connection pooling, status classification, health tracking
//  3. Adapters - anthropic, openai and mock subpackages
//  4. Registry - the registry subpackage resolves a name, model and credentials
//     to an authenticated provider
//
// # Basic Usage
//
//	reg := registry.New(registry.DefaultCatalog())
//	p, model, err := reg.Resolve(ctx, providers.ProviderConfig{
//	    Provider:    providers.Claude,
//	    Credentials: providers.Credentials{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := p.SendPrompt(ctx, "Hello!", providers.SendOptions{Model: model})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Content)
//
// # Retries
//
// HTTPProvider never retries. The request pipeline wraps SendPrompt in
// retry.Do so that one policy and one deadline govern every attempt.
//
// # Health Tracking
//
// HTTPProvider counts requests and consecutive backend failures (network,
// timeout, rate limit and 5xx). After UnhealthyThreshold consecutive
// failures the provider reports IsHealthy() == false until a request
// succeeds. Caller errors such as a rejected key do not count.
package providers
