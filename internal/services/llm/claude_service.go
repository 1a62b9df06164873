package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// ClaudeService implements the LLMService interface using the Anthropic
// Claude API. It provides blocking and streamed chat completions.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

var _ interfaces.LLMService = (*ClaudeService)(nil)

// convertMessagesToClaude converts []interfaces.Message to Claude MessageParam
// format. System messages are extracted separately for the System parameter.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			// Unknown roles default to user
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// NewClaudeService creates a new Claude LLM service instance.
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service (set via ANTHROPIC_API_KEY, INDAGO_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout := common.Duration(claudeConfig.Timeout, 120*time.Second)

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
func (s *ClaudeService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", models.Errorf(models.ErrInputInvalid, "claude: messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Claude chat completion")

	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude chat completion failed")
		return "", err
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude chat completion completed successfully")

	return response, nil
}

// ChatStream generates a streamed completion, invoking onDelta for each text
// fragment as it arrives. The accumulated text is returned on success.
func (s *ClaudeService) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	if len(messages) == 0 {
		return "", models.Errorf(models.ErrInputInvalid, "claude: messages cannot be empty for chat completion")
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", models.NewError(models.ErrInputInvalid, "claude: convert messages", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := s.buildParams(claudeMessages, systemText)

	stream := s.client.Messages.NewStreaming(timeoutCtx, params)

	var response strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				response.WriteString(delta.Text)
				if onDelta != nil {
					onDelta(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Int("partial_length", response.Len()).
			Msg("Claude streamed completion failed")
		return "", classifyErr("claude: stream", err)
	}

	if response.Len() == 0 {
		return "", models.Errorf(models.ErrContentEmpty, "claude: no response generated from streamed completion")
	}

	return response.String(), nil
}

// HealthCheck verifies the Claude service is operational.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	testMessages := []interfaces.Message{
		{Role: "user", Content: "ping"},
	}

	response, err := s.generateCompletion(healthCheckCtx, testMessages)
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	// Claude client doesn't require explicit cleanup
	return nil
}

func (s *ClaudeService) buildParams(claudeMessages []anthropic.MessageParam, systemText string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	return params
}

// generateCompletion encapsulates the blocking Claude API call.
func (s *ClaudeService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", models.NewError(models.ErrInputInvalid, "claude: convert messages", err)
	}

	params := s.buildParams(claudeMessages, systemText)

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyErr("claude: chat", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", models.Errorf(models.ErrContentEmpty, "claude: no response generated")
	}

	return response.String(), nil
}
