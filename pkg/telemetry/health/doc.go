// Package health provides liveness and readiness probes for long-running
// ajala processes such as batch runs.
//
// Readiness aggregates named checks. ProviderCheck turns the registry's
// per-handle health counters into a check, so a provider that keeps
// failing with network, timeout, unavailable or rate-limit errors makes
// /readyz return 503 until a call succeeds again.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("providers", health.ProviderCheck(reg))
//	health.Mount(mux, checker, health.VersionInfo{Version: version})
package health
