package llm

import (
	"context"
	"time"

	"github.com/Veraticus/spice-capture/internal/model"
)

// Client is a chat model provider. Both methods return the model's raw
// text reply.
type Client interface {
	ClassifyText(ctx context.Context, content string) (string, error)
	ClassifyImage(ctx context.Context, image model.PhotoPayload) (string, error)
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio model.AudioPayload) (string, error)
}

// Config holds configuration for the classification client.
type Config struct {
	Provider         string
	APIKey           string
	Model            string
	BaseURL          string
	Transcriber      string
	TranscriberModel string
	TranscriberKey   string
	Language         string
	CredentialsFile  string
	Timeout          time.Duration
	RateLimit        int
	Temperature      float64
	MaxTokens        int
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 300
	defaultTimeout     = 30 * time.Second
)

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}
	return c.Timeout
}
