package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"google.golang.org/genai"
)

// GeminiService implements the LLMService interface using Google Gemini.
// It provides blocking and streamed chat completions.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

var _ interfaces.LLMService = (*GeminiService)(nil)

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			// Unknown roles default to user
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance.
func NewGeminiService(geminiConfig *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for Gemini service (set via GEMINI_API_KEY, INDAGO_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	timeout := common.Duration(geminiConfig.Timeout, 120*time.Second)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", models.Errorf(models.ErrInputInvalid, "gemini: messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Gemini chat completion")

	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		return "", err
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini chat completion completed successfully")

	return response, nil
}

// ChatStream generates a streamed completion, invoking onDelta for each text
// fragment as it arrives. The accumulated text is returned on success.
func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	if len(messages) == 0 {
		return "", models.Errorf(models.ErrInputInvalid, "gemini: messages cannot be empty for chat completion")
	}

	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", models.NewError(models.ErrInputInvalid, "gemini: convert messages", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := s.buildConfig(systemText)

	var response strings.Builder
	for chunk, err := range s.client.Models.GenerateContentStream(timeoutCtx, s.config.Model, contents, config) {
		if err != nil {
			s.logger.Error().
				Err(err).
				Int("partial_length", response.Len()).
				Msg("Gemini streamed completion failed")
			return "", classifyErr("gemini: stream", err)
		}
		text := chunk.Text()
		if text != "" {
			response.WriteString(text)
			if onDelta != nil {
				onDelta(text)
			}
		}
	}

	if response.Len() == 0 {
		return "", models.Errorf(models.ErrContentEmpty, "gemini: no response generated from streamed completion")
	}

	return response.String(), nil
}

// HealthCheck verifies the Gemini service is operational.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("Gemini client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	testMessages := []interfaces.Message{
		{Role: "user", Content: "ping"},
	}

	response, err := s.generateCompletion(healthCheckCtx, testMessages)
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")
	s.client = nil
	return nil
}

func (s *GeminiService) buildConfig(systemText string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	return config
}

// generateCompletion encapsulates the blocking Gemini API call.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", models.NewError(models.ErrInputInvalid, "gemini: convert messages", err)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, s.buildConfig(systemText))
	if err != nil {
		return "", classifyErr("gemini: chat", err)
	}

	// Iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", models.Errorf(models.ErrContentEmpty, "gemini: no response generated")
	}

	return response.String(), nil
}
