// Package tokens estimates token counts from text length.
//
// The estimator divides the character count by a model-specific
// characters-per-token ratio. It is fast and within a few percent for
// English prose:
//
//   - gpt-4o, gpt-4: ~4 characters per token
//   - claude-3 family: ~3.5 characters per token
//
// Ratios are matched by the longest model prefix, so "gpt-4o" covers
// "gpt-4o-mini" unless a more specific entry exists. The "default" entry
// applies to everything else.
//
//	est := tokens.New(tokens.Config{})
//	e := est.Prompt(prompt, system, "gpt-4o", 0)
//	fmt.Printf("~%d tokens\n", e.TotalTokens)
//
// The pipeline uses the estimator when a provider reports no usage.
package tokens
