package models

import "time"

// EventType tags an event variant. Tags are stable and wire-visible;
// the event bus keys subscriptions by tag.
type EventType string

const (
	EventCrawlStarted        EventType = "crawl_started"
	EventURLProcessingStart  EventType = "url_processing_started"
	EventURLProcessed        EventType = "url_processed"
	EventURLProcessingFailed EventType = "url_processing_failed"
	EventCrawlCompleted      EventType = "crawl_completed"
	EventCrawlError          EventType = "crawl_error"
	EventCrawlWarning        EventType = "crawl_warning"
)

// Event is a tagged variant published on the event bus
type Event struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// CrawlStartedPayload accompanies EventCrawlStarted
type CrawlStartedPayload struct {
	SeedURLs []string `json:"seed_urls"`
	MaxDepth int      `json:"max_depth"`
	MaxURLs  int      `json:"max_urls"`
}

// URLProcessingPayload accompanies EventURLProcessingStart
type URLProcessingPayload struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// URLProcessedPayload accompanies EventURLProcessed
type URLProcessedPayload struct {
	URL          string        `json:"url"`
	StatusCode   int           `json:"status_code"`
	ChunkCount   int           `json:"chunk_count"`
	Bytes        int64         `json:"bytes"`
	ContentType  string        `json:"content_type,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
}

// URLFailedPayload accompanies EventURLProcessingFailed
type URLFailedPayload struct {
	URL        string `json:"url"`
	ErrorType  string `json:"error_type"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Retries    int    `json:"retries"`
}

// CrawlCompletedPayload accompanies EventCrawlCompleted
type CrawlCompletedPayload struct {
	Snapshot  ProgressSnapshot `json:"snapshot"`
	Cancelled bool             `json:"cancelled"`
}

// CrawlErrorPayload accompanies EventCrawlError and EventCrawlWarning
type CrawlErrorPayload struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// NewEvent builds an event with the timestamp set
func NewEvent(eventType EventType, jobID string, payload interface{}) Event {
	return Event{
		Type:      eventType,
		JobID:     jobID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
