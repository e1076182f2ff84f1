package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"golang.org/x/time/rate"
)

// Observer receives one call per classification attempt.
type Observer interface {
	ObserveClassification(provider string, mode model.InputMode, elapsed time.Duration, err error)
}

// Classifier is the single entry point for classifying a capture payload.
type Classifier struct {
	client      Client
	transcriber Transcriber
	limiter     *rate.Limiter
	logger      *slog.Logger
	observer    Observer
	provider    string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithObserver reports every attempt to o.
func WithObserver(o Observer) ClassifierOption {
	return func(c *Classifier) {
		c.observer = o
	}
}

// WithRateLimit replaces the default throttle.
func WithRateLimit(requestsPerMinute int) ClassifierOption {
	return func(c *Classifier) {
		c.limiter = newRateLimiter(requestsPerMinute)
	}
}

// NewClassifierWith assembles a Classifier from already built parts.
// transcriber may be nil, in which case audio payloads fail with
// common.ErrTranscriptionFailed.
func NewClassifierWith(provider string, client Client, transcriber Transcriber, logger *slog.Logger, opts ...ClassifierOption) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{
		client:      client,
		transcriber: transcriber,
		limiter:     newRateLimiter(0),
		logger:      logger,
		provider:    provider,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify sends payload to the classification service exactly once and
// returns the raw reply. Audio is transcribed first; a transcription
// failure is reported as common.ErrTranscriptionFailed.
func (c *Classifier) Classify(ctx context.Context, payload model.Payload) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("classify: nil payload")
	}

	start := time.Now()
	raw, err := c.classify(ctx, payload)
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.ObserveClassification(c.provider, payload.Mode(), elapsed, err)
	}

	if err != nil {
		c.logger.Warn("classification failed",
			"provider", c.provider,
			"mode", payload.Mode(),
			"elapsed", elapsed,
			"error", err)
		return nil, err
	}

	c.logger.Debug("classification completed",
		"provider", c.provider,
		"mode", payload.Mode(),
		"elapsed", elapsed,
		"bytes", len(raw))
	return []byte(raw), nil
}

func (c *Classifier) classify(ctx context.Context, payload model.Payload) (string, error) {
	switch p := payload.(type) {
	case model.TextPayload:
		return c.classifyText(ctx, p.Content)

	case model.AudioPayload:
		if len(p.Data) == 0 {
			return "", common.ErrEmptyRecording
		}
		transcript, err := c.transcribe(ctx, p)
		if err != nil {
			return "", err
		}
		c.logger.Debug("audio transcribed", "provider", c.provider, "chars", len(transcript))
		return c.classifyText(ctx, transcript)

	case model.PhotoPayload:
		if len(p.Data) == 0 {
			return "", common.ErrInvalidFileType
		}
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		return c.client.ClassifyImage(ctx, p)

	default:
		return "", fmt.Errorf("classify: unsupported payload %T", payload)
	}
}

func (c *Classifier) classifyText(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", common.ErrEmptyText
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.client.ClassifyText(ctx, content)
}

func (c *Classifier) transcribe(ctx context.Context, audio model.AudioPayload) (string, error) {
	if c.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", common.ErrTranscriptionFailed)
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	transcript, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", common.ErrTranscriptionFailed, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("%w: empty transcript", common.ErrTranscriptionFailed)
	}
	return transcript, nil
}

// wait blocks for a token. Running out of time while waiting is a timeout,
// not a retry.
func (c *Classifier) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: waiting for rate limiter: %w", common.ErrTimeout, err)
	}
	return nil
}
