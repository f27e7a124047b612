// Package anthropic implements the Claude provider adapter.
//
// Requests go to the Messages API (POST /v1/messages) as a single user
// turn, authenticated with the x-api-key header and pinned to
// anthropic-version 2023-06-01. max_tokens defaults to 4096.
//
// When JSON output is expected, an instruction is appended to the system
// prompt, since the Messages API has no response_format switch.
//
// # Basic Usage
//
//	p := anthropic.New(anthropic.Config{})
//	if err := p.Authenticate(ctx, providers.Credentials{APIKey: os.Getenv("ANTHROPIC_API_KEY")}); err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := p.SendPrompt(ctx, "Hello!", providers.SendOptions{Model: "claude-3-5-haiku-20241022"})
package anthropic
