// Package pipeline composes the prompt pipeline: a template is rendered,
// sent to a provider under a retry policy, and the response is optionally
// parsed as JSON and validated against a schema.
//
// Per-request Options override the pipeline Settings field by field; a nil
// override inherits the setting. All provider attempts of one Execute share
// a single deadline. Failures are returned as *Error carrying a stable code
// and the number of attempts made.
//
// Basic usage:
//
//	reg := registry.New(cfg.Catalog())
//	p := pipeline.New(cfg.Runtime(), reg,
//	    pipeline.WithMetrics(collector),
//	    pipeline.WithTracer(tracer),
//	)
//	res, err := p.Execute(ctx, &pipeline.Request{
//	    Template:  "Summarize {{topic}} as JSON",
//	    Variables: map[string]string{"topic": "retries"},
//	    Options:   pipeline.Options{ExpectJSON: true},
//	}, providers.ProviderConfig{Provider: providers.Mock, Credentials: creds})
package pipeline
