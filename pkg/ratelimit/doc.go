// Package ratelimit throttles outgoing provider calls on the client side.
//
// Each provider can be given a request rate (a token bucket refilled at
// requests_per_minute with capacity burst) and a cap on in-flight calls.
// The pipeline acquires a slot before every provider attempt, retries
// included, and waits rather than failing: a batch of a thousand requests
// with requests_per_minute: 60 simply takes about sixteen minutes instead
// of tripping the provider's own 429 responses.
//
//	providers:
//	  openai:
//	    rate_limit:
//	      requests_per_minute: 500
//	      burst: 20
//	      max_concurrent: 8
//
// Waiting honours the request context, so the shared request deadline
// still bounds the total time spent queueing.
package ratelimit
