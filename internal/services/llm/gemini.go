package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
)

const geminiEmbedDimension = 768

// GeminiService implements both the completion and embedding
// capabilities on the Google Gemini API
type GeminiService struct {
	config common.GeminiConfig
	client *genai.Client
	logger arbor.ILogger
}

func NewGeminiService(ctx context.Context, config common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config: config,
		client: client,
		logger: logger,
	}

	logger.Debug().
		Str("chat_model", config.Model).
		Str("embed_model", config.EmbedModel).
		Msg("Gemini service initialized")

	return service, nil
}

// Complete generates a completion for the conversation history
func (s *GeminiService) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("gemini service is closed")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	var systemText string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		case "assistant":
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("at least one non-system message is required")
	}

	config := &genai.GenerateContentConfig{}
	if systemText != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemText)},
		}
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	var response strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			response.WriteString(part.Text)
		}
		break
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return response.String(), nil
}

// GenerateEmbedding returns the embedding vector for text
func (s *GeminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini service is closed")
	}
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	outputDim := int32(geminiEmbedDimension)
	result, err := s.client.Models.EmbedContent(ctx, s.config.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	return result.Embeddings[0].Values, nil
}

func (s *GeminiService) ModelName() string { return s.config.Model }

func (s *GeminiService) Dimension() int { return geminiEmbedDimension }

func (s *GeminiService) IsAvailable(_ context.Context) bool { return s.client != nil }

func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}
