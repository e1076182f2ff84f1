// Package events publishes transaction lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives TransactionCreated events.
const DefaultTopic = "transactions.created"

// EventTransactionCreated is the eventType header of a created event.
const EventTransactionCreated = "transaction.created"

// Config holds Kafka publisher configuration.
type Config struct {
	Topic     string
	Principal string
	Brokers   []string
	Enabled   bool
}

// Recorder is told about every publish attempt.
type Recorder interface {
	ObservePublish(topic string, elapsed time.Duration, err error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransactionCreated is the JSON body of a created event.
type TransactionCreated struct {
	CreatedAt     time.Time               `json:"createdAt"`
	Analysis      *model.AnalysisSnapshot `json:"analysis,omitempty"`
	EventType     string                  `json:"eventType"`
	ID            string                  `json:"id"`
	OwnerID       string                  `json:"ownerId"`
	Date          string                  `json:"date"`
	Type          model.TransactionType   `json:"type"`
	Amount        string                  `json:"amount"`
	Currency      string                  `json:"currency"`
	Category      string                  `json:"category"`
	Description   string                  `json:"description,omitempty"`
	InputMethod   model.InputMode         `json:"inputMethod"`
	AttachmentURI string                  `json:"attachmentUri,omitempty"`
}

// NewTransactionCreated builds the event for tx.
func NewTransactionCreated(tx model.StoredTransaction) TransactionCreated {
	return TransactionCreated{
		EventType:     EventTransactionCreated,
		ID:            tx.ID,
		OwnerID:       tx.OwnerID,
		Date:          tx.Date(),
		Type:          tx.Type,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      model.DefaultCurrency,
		Category:      tx.Category,
		Description:   tx.Description,
		InputMethod:   tx.InputMethod,
		AttachmentURI: tx.AttachmentURI,
		Analysis:      tx.SourceAnalysis,
		CreatedAt:     tx.CreatedAt,
	}
}

// Publisher publishes transaction events to Kafka, or only logs them when
// Kafka is disabled. It implements ledger.Notifier.
type Publisher struct {
	writer    messageWriter
	recorder  Recorder
	logger    *slog.Logger
	topic     string
	principal string
	retry     common.RetryOptions
	enabled   bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRecorder reports publish attempts to r.
func WithRecorder(r Recorder) Option {
	return func(p *Publisher) { p.recorder = r }
}

// WithRetryPolicy sets how often a failed write is retried. MaxAttempts of
// one or less disables retries.
func WithRetryPolicy(opts common.RetryOptions) Option {
	return func(p *Publisher) { p.retry = opts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a publisher. A nil or disabled config, or one without
// brokers, yields a log-only publisher.
func New(cfg *Config, opts ...Option) *Publisher {
	p := &Publisher{
		topic:  DefaultTopic,
		logger: slog.Default(),
		retry:  common.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg == nil {
		p.logger.Info("Kafka disabled (nil config), using log-only mode")
		return p
	}
	if cfg.Topic != "" {
		p.topic = cfg.Topic
	}
	p.principal = cfg.Principal

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		p.logger.Info("Kafka disabled, using log-only mode", "topic", p.topic)
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        p.topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	p.enabled = true

	p.logger.Info("Kafka publisher initialized",
		"brokers", cfg.Brokers,
		"topic", p.topic,
		"principal", p.principal)
	return p
}

// Enabled reports whether events go to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// TransactionCreated publishes the created event keyed by owner, so one
// owner's events stay ordered on one partition.
func (p *Publisher) TransactionCreated(ctx context.Context, tx model.StoredTransaction) error {
	return p.publish(ctx, tx.OwnerID, NewTransactionCreated(tx))
}

func (p *Publisher) publish(ctx context.Context, key string, event TransactionCreated) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", "topic", p.topic, "error", err)
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}

	p.logger.Debug("Publishing event",
		"principal", p.principal,
		"topic", p.topic,
		"key", key,
		"payload", string(payload))

	if !p.enabled || p.writer == nil {
		p.record(start, nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	write := func() error { return p.writer.WriteMessages(ctx, msg) }
	if p.retry.MaxAttempts > 1 {
		err = common.WithRetry(ctx, write, p.retry)
	} else {
		err = write()
	}
	if err != nil {
		p.logger.Error("Failed to write to Kafka", "topic", p.topic, "key", key, "error", err)
		p.record(start, err)
		return fmt.Errorf("publish %s event: %w", event.EventType, err)
	}

	p.record(start, nil)
	return nil
}

func (p *Publisher) record(start time.Time, err error) {
	if p.recorder != nil {
		p.recorder.ObservePublish(p.topic, time.Since(start), err)
	}
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Error closing Kafka writer", "error", err)
		return err
	}
	return nil
}
