package models

import "time"

// CrawlError is one bounded entry of the progress error list
type CrawlError struct {
	URL        string    `json:"url"`
	Type       string    `json:"type"` // Error kind tag, e.g. "network_transient"
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Retries    int       `json:"retries"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ResponseTimeStats aggregates per-fetch response times
type ResponseTimeStats struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
}

// ProgressSnapshot is an observationally immutable copy of a job's
// progress. Processed = Success + Failure holds at every snapshot and
// never exceeds Total.
type ProgressSnapshot struct {
	JobID              string            `json:"job_id"`
	TotalURLs          int               `json:"total_urls"`
	ProcessedURLs      int               `json:"processed_urls"`
	SuccessURLs        int               `json:"success_urls"`
	FailedURLs         int               `json:"failed_urls"`
	TotalChunks        int               `json:"total_chunks"`
	CurrentURL         string            `json:"current_url,omitempty"`
	Elapsed            time.Duration     `json:"elapsed"`
	EstimatedRemaining time.Duration     `json:"estimated_remaining"` // Zero when undefined
	Errors             []CrawlError      `json:"errors,omitempty"`
	DomainCounts       map[string]int    `json:"domain_counts,omitempty"`
	StatusCounts       map[int]int       `json:"status_counts,omitempty"`
	ContentTypeCounts  map[string]int    `json:"content_type_counts,omitempty"`
	ErrorTypeCounts    map[string]int    `json:"error_type_counts,omitempty"`
	ResponseTimes      ResponseTimeStats `json:"response_times"`
	StartedAt          time.Time         `json:"started_at"`
	LastUpdated        time.Time         `json:"last_updated"`
}
