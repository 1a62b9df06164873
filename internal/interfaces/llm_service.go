package interfaces

import "context"

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// LLMService abstracts a language model provider with streaming support.
// Provider selection is configuration; all pipeline stages depend only on
// this interface.
type LLMService interface {
	// Chat generates a completion for the conversation history.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream generates a completion, invoking onDelta for each text
	// fragment as it arrives. Returns the full accumulated response once the
	// underlying call completes.
	ChatStream(ctx context.Context, messages []Message, onDelta func(text string)) (string, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}
