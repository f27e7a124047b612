// Package openai implements the OpenAI provider adapter.
//
// Requests go to the Chat Completions API (POST /v1/chat/completions) with
// an optional system message and a single user message. Authentication
// uses a Bearer token; an "organization" entry in Credentials.Extra is
// forwarded as the OpenAI-Organization header.
//
// When JSON output is expected the request sets
// response_format {"type": "json_object"}.
package openai
