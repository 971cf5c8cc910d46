package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/ternarybob/webflux/internal/interfaces"
)

const mockEmbedDimension = 16

// MockService is a deterministic in-process backend for tests and the
// "mock" provider: completions echo a transform of the last user
// message and embeddings derive from character statistics, so similar
// texts produce similar vectors.
type MockService struct {
	mu        sync.Mutex
	calls     int
	Responses []string // Optional scripted responses, consumed in order
	Fail      bool     // Force every call to error
}

func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) Complete(_ context.Context, messages []interfaces.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return "", fmt.Errorf("mock completion failure")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	if s.calls < len(s.Responses) {
		response := s.Responses[s.calls]
		s.calls++
		return response, nil
	}
	s.calls++

	last := messages[len(messages)-1].Content
	// Echo the tail of the prompt so round-trip assertions have
	// something stable to check
	if i := strings.LastIndex(last, "\n\n"); i >= 0 {
		last = last[i+2:]
	}
	return strings.TrimSpace(last), nil
}

// GenerateEmbedding maps text onto a small vector of letter-bucket
// frequencies; identical texts embed identically
func (s *MockService) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	fail := s.Fail
	s.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("mock embedding failure")
	}
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	vector := make([]float32, mockEmbedDimension)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vector[int(r-'a')%mockEmbedDimension]++
		} else {
			vector[mockEmbedDimension-1]++
		}
	}
	var norm float32
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		scale := 1 / float32(math.Sqrt(float64(norm)))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector, nil
}

// Calls reports how many completions have been served
func (s *MockService) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *MockService) ModelName() string { return "mock" }

func (s *MockService) Dimension() int { return mockEmbedDimension }

func (s *MockService) IsAvailable(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Fail
}

func (s *MockService) Close() error { return nil }
