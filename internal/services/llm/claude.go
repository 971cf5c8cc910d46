package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/interfaces"
)

// ClaudeService implements the completion capability on the Anthropic
// API
type ClaudeService struct {
	config common.ClaudeConfig
	client anthropic.Client
	closed bool
	logger arbor.ILogger
}

// NewClaudeService initializes the Anthropic client. The API key comes
// from configuration (usually the ANTHROPIC_API_KEY override).
func NewClaudeService(config common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	service := &ClaudeService{
		config: config,
		client: anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		logger: logger,
	}

	logger.Debug().
		Str("model", config.Model).
		Int("max_tokens", config.MaxTokens).
		Msg("Claude completion service initialized")

	return service, nil
}

// Complete generates a completion for the conversation history. System
// messages are lifted into the request's System parameter.
func (s *ClaudeService) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	if s.closed {
		return "", fmt.Errorf("claude service is closed")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}
	if len(claudeMessages) == 0 {
		return "", fmt.Errorf("at least one non-system message is required")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.config.MaxTokens),
		Messages:  claudeMessages,
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude completion failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return response.String(), nil
}

func (s *ClaudeService) ModelName() string { return s.config.Model }

func (s *ClaudeService) IsAvailable(_ context.Context) bool {
	return !s.closed && s.config.APIKey != ""
}

func (s *ClaudeService) Close() error {
	s.closed = true
	return nil
}
