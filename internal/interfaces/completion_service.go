package interfaces

import "context"

// Message represents a single message in a completion conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// CompletionService defines the text-completion capability consumed by
// the reconstruct strategies. Implementations may use cloud APIs
// (Anthropic, Gemini) or a mock for tests; the core never depends on a
// concrete backend.
type CompletionService interface {
	// Complete generates a completion for the conversation history.
	// Messages are in chronological order and may begin with a system
	// prompt.
	Complete(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the model identifier used for completions
	ModelName() string

	// IsAvailable reports whether the backend can serve requests
	IsAvailable(ctx context.Context) bool

	// Close releases resources held by the backend
	Close() error
}
