package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveMicrophone emits its chunks and then blocks until stopped or closed,
// the way a real input device does.
type liveMicrophone struct {
	openErr error
	chunks  [][]byte
	mu      sync.Mutex
	opened  int
	streams []*liveStream
}

func (m *liveMicrophone) Open(_ context.Context) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
	if m.openErr != nil {
		return nil, m.openErr
	}
	s := &liveStream{chunks: append([][]byte(nil), m.chunks...), stopped: make(chan struct{})}
	m.streams = append(m.streams, s)
	return s, nil
}

type liveStream struct {
	stopped  chan struct{}
	chunks   [][]byte
	mu       sync.Mutex
	stopOnce sync.Once
	closed   bool
	stops    int
}

func (s *liveStream) Read(p []byte) (int, error) {
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
	<-s.stopped
	return 0, io.EOF
}

func (s *liveStream) MIMEType() string { return "audio/webm" }

func (s *liveStream) Stop() error {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *liveStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *liveStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestAudioRecorder_BeginEnd(t *testing.T) {
	mic := &liveMicrophone{chunks: [][]byte{[]byte("hello "), []byte("world")}}
	rec := NewAudioRecorder(mic)

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Busy())

	payload, err := h.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(payload.Data))
	assert.Equal(t, "audio/webm", payload.MIMEType)
	assert.False(t, rec.Busy())
	assert.True(t, mic.streams[0].isClosed())
}

func TestAudioHandle_EndIsIdempotent(t *testing.T) {
	mic := &liveMicrophone{chunks: [][]byte{[]byte("abc")}}
	rec := NewAudioRecorder(mic)

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	first, err1 := h.End(context.Background())
	second, err2 := h.End(context.Background())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mic.streams[0].stops)

	h.Release()
	assert.False(t, rec.Busy())
}

func TestAudioHandle_EmptyRecording(t *testing.T) {
	rec := NewAudioRecorder(&liveMicrophone{})

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	_, err = h.End(context.Background())
	assert.ErrorIs(t, err, common.ErrEmptyRecording)

	_, again := h.End(context.Background())
	assert.Equal(t, err, again)
	assert.False(t, rec.Busy())
}

func TestAudioRecorder_Exclusive(t *testing.T) {
	rec := NewAudioRecorder(&liveMicrophone{chunks: [][]byte{[]byte("x")}})

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	_, err = rec.Begin(context.Background())
	assert.ErrorIs(t, err, common.ErrDeviceBusy)

	h.Release()
	h2, err := rec.Begin(context.Background())
	require.NoError(t, err)
	h2.Release()
}

func TestAudioRecorder_OpenFailures(t *testing.T) {
	tests := []struct {
		openErr error
		want    error
		name    string
	}{
		{name: "permission", openErr: common.ErrPermissionDenied, want: common.ErrPermissionDenied},
		{name: "unavailable", openErr: common.ErrDeviceUnavailable, want: common.ErrDeviceUnavailable},
		{name: "foreign error", openErr: errors.New("no such card"), want: common.ErrDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewAudioRecorder(&liveMicrophone{openErr: tt.openErr})
			h, err := rec.Begin(context.Background())
			assert.Nil(t, h)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, rec.Busy(), "failed acquisition must not hold the device")
		})
	}
}

func TestAudioHandle_ReleaseWithoutEnd(t *testing.T) {
	mic := &liveMicrophone{chunks: [][]byte{[]byte("partial")}}
	rec := NewAudioRecorder(mic)

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	h.Release()
	h.Release()
	assert.False(t, rec.Busy())
	assert.True(t, mic.streams[0].isClosed())
}

func TestAudioHandle_EndHonorsContext(t *testing.T) {
	blocking := &blockingMicrophone{release: make(chan struct{})}
	rec := NewAudioRecorder(blocking)

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.End(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, rec.Busy())
}

func TestAudioRecorder_MaxBytes(t *testing.T) {
	mic := &liveMicrophone{chunks: [][]byte{[]byte("0123456789")}}
	rec := NewAudioRecorder(mic, WithMaxRecordingBytes(4))

	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	payload, err := h.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0123", string(payload.Data))
}

func TestReaderMicrophone(t *testing.T) {
	fs := newMemFs(t, map[string][]byte{"/rec/note.wav": []byte("RIFF....WAVE")})

	rec := NewAudioRecorder(NewReaderMicrophone(fs, "/rec/note.wav", ""))
	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	payload, err := h.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", payload.MIMEType)
	assert.Equal(t, "RIFF....WAVE", string(payload.Data))

	_, err = NewAudioRecorder(NewReaderMicrophone(fs, "/missing.wav", "")).Begin(context.Background())
	assert.ErrorIs(t, err, common.ErrDeviceUnavailable)
}

func TestBytesMicrophone(t *testing.T) {
	rec := NewAudioRecorder(NewBytesMicrophone([]byte("opus"), "audio/ogg"))
	h, err := rec.Begin(context.Background())
	require.NoError(t, err)

	payload, err := h.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", payload.MIMEType)
	assert.Equal(t, "opus", string(payload.Data))
}

func TestCommandMicrophone_MissingBinary(t *testing.T) {
	mic := NewCommandMicrophone([]string{"spice-definitely-not-a-recorder"}, "")
	_, err := NewAudioRecorder(mic).Begin(context.Background())
	assert.ErrorIs(t, err, common.ErrDeviceUnavailable)
}

// blockingMicrophone never produces data and ignores Stop; only Close ends it.
type blockingMicrophone struct {
	release chan struct{}
	once    sync.Once
}

func (m *blockingMicrophone) Open(_ context.Context) (Stream, error) {
	return &blockingStream{m: m}, nil
}

type blockingStream struct {
	m *blockingMicrophone
}

func (s *blockingStream) Read(_ []byte) (int, error) {
	<-s.m.release
	return 0, io.EOF
}

func (s *blockingStream) MIMEType() string { return "audio/webm" }
func (s *blockingStream) Stop() error      { return nil }
func (s *blockingStream) Close() error {
	s.m.once.Do(func() { close(s.m.release) })
	return nil
}
