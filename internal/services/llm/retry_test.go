package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

type fakeLLM struct {
	chatCalls   int
	streamCalls int
	chatFn      func(call int) (string, error)
	streamFn    func(call int, onDelta func(string)) (string, error)
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.chatCalls++
	return f.chatFn(f.chatCalls)
}

func (f *fakeLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	f.streamCalls++
	return f.streamFn(f.streamCalls, onDelta)
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

func TestWithRetry_ChatRetriesTransientFailure(t *testing.T) {
	fake := &fakeLLM{
		chatFn: func(call int) (string, error) {
			if call == 1 {
				return "", models.Errorf(models.ErrExternalRateLimited, "rate limited")
			}
			return "ok", nil
		},
	}

	service := WithRetry(fake, 2, common.GetLogger())
	response, err := service.Chat(context.Background(), []interfaces.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Equal(t, 2, fake.chatCalls)
}

func TestWithRetry_ChatDoesNotRetryPermanentFailure(t *testing.T) {
	fake := &fakeLLM{
		chatFn: func(call int) (string, error) {
			return "", models.Errorf(models.ErrInputInvalid, "bad input")
		},
	}

	service := WithRetry(fake, 2, common.GetLogger())
	_, err := service.Chat(context.Background(), []interfaces.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, models.ErrInputInvalid, models.KindOf(err))
	assert.Equal(t, 1, fake.chatCalls)
}

func TestWithRetry_ChatExhaustsBudget(t *testing.T) {
	fake := &fakeLLM{
		chatFn: func(call int) (string, error) {
			return "", models.Errorf(models.ErrExternalTimeout, "timed out")
		},
	}

	service := WithRetry(fake, 2, common.GetLogger())
	_, err := service.Chat(context.Background(), []interfaces.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, models.ErrExternalTimeout, models.KindOf(err))
	assert.Equal(t, 2, fake.chatCalls)
}

func TestWithRetry_StreamRetriesWhenNothingDelivered(t *testing.T) {
	fake := &fakeLLM{
		streamFn: func(call int, onDelta func(string)) (string, error) {
			if call == 1 {
				return "", models.Errorf(models.ErrExternalTimeout, "timed out before first token")
			}
			onDelta("hello")
			return "hello", nil
		},
	}

	service := WithRetry(fake, 2, common.GetLogger())
	var got string
	response, err := service.ChatStream(context.Background(), []interfaces.Message{{Role: "user", Content: "hi"}}, func(text string) {
		got += text
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", response)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 2, fake.streamCalls)
}

func TestWithRetry_StreamNotRetriedAfterPartialDelivery(t *testing.T) {
	fake := &fakeLLM{
		streamFn: func(call int, onDelta func(string)) (string, error) {
			onDelta("partial")
			return "", models.Errorf(models.ErrExternalTimeout, "died mid-stream")
		},
	}

	service := WithRetry(fake, 3, common.GetLogger())
	_, err := service.ChatStream(context.Background(), []interfaces.Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, fake.streamCalls)
}

func TestWithRetry_SingleAttemptReturnsInner(t *testing.T) {
	fake := &fakeLLM{}
	service := WithRetry(fake, 1, common.GetLogger())
	assert.Same(t, interfaces.LLMService(fake), service)
}
