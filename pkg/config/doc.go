// Package config provides configuration management for Ajala.
//
// This package loads, validates and publishes configuration from YAML
// files with environment variable overrides. The loaded Config is turned
// into an immutable *Settings value that the pipeline reads on every
// request.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("ajala.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("ajala.yaml")
//
// Unknown keys are rejected.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AJALA_SECTION_FIELD.
// For example:
//
//   - AJALA_SETTINGS_TIMEOUT overrides settings.timeout
//   - AJALA_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - AJALA_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Boolean defaults (see baseConfig)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Remaining defaults for zero-valued fields
//  5. Validation (fails fast if invalid)
//
// retry.max_attempts defaults to settings.max_retries.
//
// # Hot Reload
//
// A Holder publishes the current Config through an atomic pointer. A
// Watcher reloads it when the file changes:
//
//	h := config.NewHolder(path, cfg)
//	w, err := config.NewWatcher(h)
//	go w.Watch(ctx)
//	...
//	settings := h.Settings()
//
// A failed reload keeps the previous configuration.
//
// # Example Configuration
//
//	settings:
//	  timeout: 20s
//	  max_retries: 4
//
//	json:
//	  strict: false
//	  remove_additional: true
//
//	providers:
//	  claude:
//	    default_model: claude-3-5-sonnet-20241022
//
//	journal:
//	  enabled: true
//	  backend: sqlite
//	  path: data/journal.db
package config
