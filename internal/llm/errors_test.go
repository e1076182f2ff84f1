package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestStatusError(t *testing.T) {
	err := statusError("openai", 429, []byte(strings.Repeat("x", 2000)))
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Less(t, len(err.Error()), 700, "body must be truncated")
}

func TestTransportError(t *testing.T) {
	assert.ErrorIs(t, transportError("openai", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, transportError("openai", context.Canceled), common.ErrServiceUnavailable)
	assert.ErrorIs(t, transportError("openai", fmt.Errorf("dial: %w", context.DeadlineExceeded)), common.ErrTimeout)
	assert.ErrorIs(t, transportError("openai", errors.New("connection reset")), common.ErrServiceUnavailable)
}

func TestGenaiError(t *testing.T) {
	assert.ErrorIs(t, genaiError(genai.APIError{Code: 429, Message: "quota"}), common.ErrRateLimited)
	assert.ErrorIs(t, genaiError(fmt.Errorf("wrapped: %w", genai.APIError{Code: 503})), common.ErrServiceUnavailable)
	assert.ErrorIs(t, genaiError(genai.APIError{Code: 504}), common.ErrTimeout)
	assert.ErrorIs(t, genaiError(errors.New("dns failure")), common.ErrServiceUnavailable)
}
