// Ajala sends templated prompts to an LLM provider, retries transient
// failures, and parses and validates JSON answers against a schema.
//
// Usage:
//
//	# Run a prompt given on the command line
//	ajala run "Summarize: {{text}}" --var text="..." --provider claude
//
//	# Run a request file (YAML or JSON)
//	ajala run --file request.yaml
//
//	# Run many requests concurrently
//	ajala run --batch requests.yaml --concurrency 8
//
//	# Render a template without calling a provider
//	ajala render "Hello {{name}}" --var name=Ada
//
//	# Validate a JSON document against a schema
//	ajala validate --schema user.yaml response.json
//
//	# Inspect the execution journal
//	ajala journal query --status error --format json
package main

func main() {
	Execute()
}
