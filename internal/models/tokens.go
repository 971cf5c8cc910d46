package models

// ModelTokenCount is one model's estimate for a piece of text
type ModelTokenCount struct {
	Model         string  `json:"model"`
	Tokens        int     `json:"tokens"`
	EstimatedCost float64 `json:"estimated_cost"` // USD for input tokens
	Compression   float64 `json:"compression"`    // Characters per token
}

// TokenAnalysis compares a text across the known model families
type TokenAnalysis struct {
	TextLength   int               `json:"text_length"`
	WordCount    int               `json:"word_count"`
	Counts       []ModelTokenCount `json:"counts"`
	OptimalModel string            `json:"optimal_model"` // Cheapest model for this text
}

// TokenStatistics aggregates counter usage for one model
type TokenStatistics struct {
	Model       string  `json:"model"`
	Requests    int64   `json:"requests"`
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	TotalTokens int64   `json:"total_tokens"`
	MeanTokens  float64 `json:"mean_tokens"`
}
