// Package codes defines the stable error code space shared by every Ajala
// package.
//
// Codes are strings of the form AJALA_NNN, partitioned into three ranges:
//
//   - core (001-019): templating, parsing, validation and provider failures
//   - configuration (020-029): invalid settings, credentials, providers, models
//   - runtime (030-039): availability and execution failures
//
// Any error produced by this module carries a code reachable through Of:
//
//	resp, err := p.Execute(ctx, req, pc)
//	if codes.Of(err) == codes.RateLimitError {
//	    // back off at a higher level
//	}
package codes
