package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	err      error
	messages []kafka.Message
	failures int
	attempts int
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.attempts++
	if w.failures > 0 {
		w.failures--
		return errors.New("not enough replicas")
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeRecorder struct {
	errs   []error
	topics []string
}

func (r *fakeRecorder) ObservePublish(topic string, _ time.Duration, err error) {
	r.topics = append(r.topics, topic)
	r.errs = append(r.errs, err)
}

func storedLunch() model.StoredTransaction {
	return model.StoredTransaction{
		ID:        "tx-1",
		CreatedAt: time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC),
		TransactionRecord: model.TransactionRecord{
			OccurredOn:  time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
			Type:        model.TypeExpense,
			Amount:      decimal.RequireFromString("45.5"),
			Category:    "Food",
			Description: "Lunch",
			InputMethod: model.ModePhoto,
			OwnerID:     "user-1",
		},
	}
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		cfg  *Config
		name string
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled", cfg: &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{name: "no brokers", cfg: &Config{Enabled: true, Brokers: []string{}}},
		{name: "nil brokers", cfg: &Config{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			require.NotNil(t, p)
			assert.False(t, p.Enabled())
			assert.Nil(t, p.writer)
			assert.NoError(t, p.Close())
		})
	}
}

func TestNew_Enabled(t *testing.T) {
	p := New(&Config{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "custom.topic", Principal: "spice"})
	defer func() { _ = p.Close() }()

	assert.True(t, p.Enabled())
	assert.Equal(t, "custom.topic", p.topic)
	writer, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "custom.topic", writer.Topic)
}

func TestPublisher_TransactionCreated_Disabled(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(&Config{Enabled: false}, WithRecorder(rec))

	require.NoError(t, p.TransactionCreated(context.Background(), storedLunch()))
	assert.Equal(t, []string{DefaultTopic}, rec.topics)
	assert.Equal(t, []error{nil}, rec.errs)
}

func TestPublisher_TransactionCreated(t *testing.T) {
	writer := &fakeWriter{}
	rec := &fakeRecorder{}
	p := &Publisher{writer: writer, recorder: rec, enabled: true, topic: DefaultTopic, principal: "spice", logger: New(nil).logger}

	require.NoError(t, p.TransactionCreated(context.Background(), storedLunch()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "user-1", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "eventType", Value: []byte(EventTransactionCreated)},
		{Key: "principal", Value: []byte("spice")},
	}, msg.Headers)

	var event TransactionCreated
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "tx-1", event.ID)
	assert.Equal(t, "45.50", event.Amount)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, "2024-05-17", event.Date)
	assert.Equal(t, model.ModePhoto, event.InputMethod)
	assert.Nil(t, event.Analysis)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestPublisher_TransactionCreated_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	rec := &fakeRecorder{}
	p := &Publisher{writer: writer, recorder: rec, enabled: true, topic: DefaultTopic, logger: New(nil).logger}

	err := p.TransactionCreated(context.Background(), storedLunch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

func TestPublisher_RetriesWrites(t *testing.T) {
	policy := common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	tests := []struct {
		name         string
		failures     int
		wantErr      bool
		wantAttempts int
	}{
		{name: "recovers", failures: 2, wantAttempts: 3},
		{name: "gives up", failures: 5, wantErr: true, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeWriter{failures: tt.failures}
			rec := &fakeRecorder{}
			p := New(nil, WithRecorder(rec), WithRetryPolicy(policy))
			p.writer = writer
			p.enabled = true

			err := p.TransactionCreated(context.Background(), storedLunch())
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrMaxRetries)
			} else {
				require.NoError(t, err)
				assert.Len(t, writer.messages, 1)
			}
			assert.Equal(t, tt.wantAttempts, writer.attempts)
			assert.Len(t, rec.errs, 1)
		})
	}
}
