package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/indago/internal/models"
)

// classifyErr maps a raw provider error onto the pipeline's error kinds.
// Provider SDKs do not expose stable typed errors for quota and availability
// failures, so rate limiting is detected from the message the way the APIs
// report it (429 / RESOURCE_EXHAUSTED / quota).
func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var re *models.ResearchError
	if errors.As(err, &re) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return models.NewError(models.ErrCancelled, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewError(models.ErrExternalTimeout, op, err)
	case isRateLimitMessage(err):
		return models.NewError(models.ErrExternalRateLimited, op, err)
	default:
		return models.NewError(models.ErrExternalUnavailable, op, err)
	}
}

func isRateLimitMessage(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}
