package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/google/uuid"
)

// ClassifierReply is one scripted answer of a FakeClassifier.
type ClassifierReply struct {
	Err  error
	Raw  string
	Gate chan struct{}
}

// FakeClassifier returns scripted replies in order. A reply with a Gate
// blocks until the gate is closed or the context ends, which lets tests hold
// a classification in flight.
type FakeClassifier struct {
	Replies  []ClassifierReply
	Payloads []model.Payload
	Started  chan struct{}
	mu       sync.Mutex
	calls    int
}

// NewFakeClassifier scripts the given replies.
func NewFakeClassifier(replies ...ClassifierReply) *FakeClassifier {
	return &FakeClassifier{Replies: replies, Started: make(chan struct{}, 16)}
}

// Classify implements the classifier contract.
func (f *FakeClassifier) Classify(ctx context.Context, payload model.Payload) ([]byte, error) {
	f.mu.Lock()
	if f.calls >= len(f.Replies) {
		f.mu.Unlock()
		return nil, fmt.Errorf("fake classifier: unexpected call %d", f.calls+1)
	}
	reply := f.Replies[f.calls]
	f.calls++
	f.Payloads = append(f.Payloads, payload)
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- struct{}{}
	}

	if reply.Gate != nil {
		select {
		case <-reply.Gate:
		case <-ctx.Done():
			// Simulate a service that ignores cancellation and answers late.
			<-reply.Gate
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return []byte(reply.Raw), nil
}

// Calls returns how many times Classify ran.
func (f *FakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeMicrophone emits Chunks and then blocks like a live device until the
// stream is stopped or closed.
type FakeMicrophone struct {
	OpenErr error
	Chunks  [][]byte
	streams []*FakeStream
	mu      sync.Mutex
}

// Open implements media.Microphone.
func (m *FakeMicrophone) Open(_ context.Context) (media.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	s := &FakeStream{chunks: append([][]byte(nil), m.Chunks...), done: make(chan struct{})}
	m.streams = append(m.streams, s)
	return s, nil
}

// Streams returns every stream opened so far.
func (m *FakeMicrophone) Streams() []*FakeStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*FakeStream(nil), m.streams...)
}

// FakeStream is a stream opened by FakeMicrophone.
type FakeStream struct {
	done   chan struct{}
	chunks [][]byte
	mu     sync.Mutex
	once   sync.Once
	closed bool
}

func (s *FakeStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		n := copy(p, s.chunks[0])
		s.chunks[0] = s.chunks[0][n:]
		if len(s.chunks[0]) == 0 {
			s.chunks = s.chunks[1:]
		}
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()
	<-s.done
	return 0, io.EOF
}

// MIMEType implements media.Stream.
func (s *FakeStream) MIMEType() string { return "audio/webm" }

// Stop implements media.Stream.
func (s *FakeStream) Stop() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Close implements media.Stream.
func (s *FakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

// Closed reports whether the device was released.
func (s *FakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryStore is an in-memory record store that counts Create calls.
type MemoryStore struct {
	Err     error
	Records []model.StoredTransaction
	Gate    chan struct{}
	mu      sync.Mutex
	creates int
}

// Create stores record unless Err is set.
func (m *MemoryStore) Create(_ context.Context, record model.TransactionRecord) (model.StoredTransaction, error) {
	m.mu.Lock()
	m.creates++
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return model.StoredTransaction{}, m.Err
	}
	now := time.Now().UTC()
	stored := model.StoredTransaction{
		ID:                uuid.NewString(),
		TransactionRecord: record,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.Records = append(m.Records, stored)
	return stored, nil
}

// Creates returns how many times Create was called.
func (m *MemoryStore) Creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// SetErr changes the error returned by later Create calls.
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Stored returns a copy of the stored records.
func (m *MemoryStore) Stored() []model.StoredTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StoredTransaction(nil), m.Records...)
}
