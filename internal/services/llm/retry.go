package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const (
	retryInitialBackoff = 2 * time.Second
	retryMaxBackoff     = 30 * time.Second
)

// retryService wraps an LLMService with a bounded retry policy for transient
// failures (timeouts and rate limits). Streamed calls are retried only when
// no delta reached the caller yet, so consumers never see duplicated text.
type retryService struct {
	inner       interfaces.LLMService
	maxAttempts int
	logger      arbor.ILogger
}

// WithRetry wraps service with transient-failure retries.
func WithRetry(service interfaces.LLMService, maxAttempts int, logger arbor.ILogger) interfaces.LLMService {
	if maxAttempts <= 1 {
		return service
	}
	return &retryService{inner: service, maxAttempts: maxAttempts, logger: logger}
}

func (r *retryService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		response, err := r.inner.Chat(ctx, messages)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if !r.shouldRetry(ctx, err, attempt, "chat") {
			break
		}
	}
	return "", lastErr
}

func (r *retryService) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		delivered := false
		wrapped := func(text string) {
			delivered = true
			if onDelta != nil {
				onDelta(text)
			}
		}

		response, err := r.inner.ChatStream(ctx, messages, wrapped)
		if err == nil {
			return response, nil
		}
		lastErr = err

		// A failure mid-stream cannot be replayed transparently.
		if delivered {
			break
		}
		if !r.shouldRetry(ctx, err, attempt, "chat_stream") {
			break
		}
	}
	return "", lastErr
}

func (r *retryService) HealthCheck(ctx context.Context) error {
	return r.inner.HealthCheck(ctx)
}

func (r *retryService) Close() error {
	return r.inner.Close()
}

func (r *retryService) shouldRetry(ctx context.Context, err error, attempt int, op string) bool {
	if attempt >= r.maxAttempts || !models.IsRetryable(err) || models.IsCancelled(err) {
		return false
	}

	backoff := retryInitialBackoff << (attempt - 1)
	if backoff > retryMaxBackoff {
		backoff = retryMaxBackoff
	}

	r.logger.Warn().
		Err(err).
		Str("op", op).
		Int("attempt", attempt).
		Dur("backoff", backoff).
		Msg("LLM call failed, retrying")

	select {
	case <-ctx.Done():
		return false
	case <-time.After(backoff):
		return true
	}
}
