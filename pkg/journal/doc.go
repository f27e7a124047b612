// Package journal records the outcome of every pipeline run.
//
// A Record holds identifiers, provider, model, status, error code,
// attempts, latency, token counts and the validation outcome. Prompt text,
// responses and credentials are not journaled; the request fingerprint
// links a record to its input instead.
//
// The Recorder writes asynchronously to a Storage backend (see the
// storage subpackage). The retention subpackage prunes by age and count on
// a cron schedule; export writes records as JSON or CSV.
package journal
