package interfaces

// TokenCounter estimates token counts for model-bound text. Exact
// per-model tokenization is pluggable; the default implementation uses
// family heuristics with a bounded result cache.
type TokenCounter interface {
	// CountTokens estimates the token count of text for model
	CountTokens(text, model string) int

	// TruncateToTokenLimit trims text to at most maxTokens for model,
	// preferring whitespace boundaries
	TruncateToTokenLimit(text string, maxTokens int, model string) string
}
