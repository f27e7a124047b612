// Package secrets resolves credential references in configuration values.
//
// A provider API key may be written literally or as a reference that is
// looked up when the configuration loads:
//
//	providers:
//	  openai:
//	    api_key: ${env:OPENAI_API_KEY}
//	  claude:
//	    api_key: ${file:/run/secrets/anthropic-api-key}
//
// Two backends are built in. EnvProvider reads process environment
// variables. FileProvider reads Kubernetes-style mounted secret files,
// one secret per file, and refuses files readable by group or others.
//
// A Manager routes each reference to the provider registered for its
// scheme and caches resolved values for a configurable TTL, so a config
// hot reload does not re-read every file.
package secrets
