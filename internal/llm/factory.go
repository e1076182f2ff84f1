package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// NewClient creates a chat model client for cfg.Provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		c, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "anthropic":
		c, err := newAnthropicClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := newGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewTranscriber creates the speech-to-text backend named by
// cfg.Transcriber. When unset, the chat provider transcribes if it can.
// A nil Transcriber with a nil error means audio is unsupported.
func NewTranscriber(ctx context.Context, cfg Config) (Transcriber, error) {
	provider := strings.ToLower(cfg.Provider)
	name := strings.ToLower(cfg.Transcriber)
	if name == "" {
		name = provider
	}

	tcfg := cfg
	if cfg.TranscriberKey != "" {
		tcfg.APIKey = cfg.TranscriberKey
	}
	if name != provider {
		tcfg.BaseURL = ""
		tcfg.Model = cfg.TranscriberModel
	}

	switch name {
	case "openai", "whisper":
		c, err := newOpenAIClient(tcfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := newGeminiClient(ctx, tcfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "google-speech":
		t, err := newSpeechTranscriber(ctx, tcfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "none", "anthropic":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported transcriber: %s", name)
	}
}

// NewClassifier builds a Classifier with its client and transcriber from cfg.
func NewClassifier(ctx context.Context, cfg Config, logger *slog.Logger, opts ...ClassifierOption) (*Classifier, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	transcriber, err := NewTranscriber(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	opts = append([]ClassifierOption{WithRateLimit(cfg.RateLimit)}, opts...)
	return NewClassifierWith(strings.ToLower(cfg.Provider), client, transcriber, logger, opts...), nil
}
