package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
)

// AudioRecorder grants exclusive access to one Microphone.
type AudioRecorder struct {
	mic      Microphone
	maxBytes int64
	mu       sync.Mutex
	held     bool
}

// RecorderOption configures an AudioRecorder.
type RecorderOption func(*AudioRecorder)

// WithMaxRecordingBytes stops reading once a recording reaches n bytes.
// Zero means unlimited.
func WithMaxRecordingBytes(n int64) RecorderOption {
	return func(r *AudioRecorder) {
		r.maxBytes = n
	}
}

// NewAudioRecorder wraps mic.
func NewAudioRecorder(mic Microphone, opts ...RecorderOption) *AudioRecorder {
	r := &AudioRecorder{mic: mic}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin acquires the microphone and starts recording. It fails with
// common.ErrDeviceBusy while a previous handle has not been released.
func (r *AudioRecorder) Begin(ctx context.Context) (*AudioHandle, error) {
	r.mu.Lock()
	if r.held {
		r.mu.Unlock()
		return nil, common.ErrDeviceBusy
	}
	r.held = true
	r.mu.Unlock()

	stream, err := r.mic.Open(ctx)
	if err != nil {
		r.release()
		if !errors.Is(err, common.ErrPermissionDenied) && !errors.Is(err, common.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrDeviceUnavailable, err)
		}
		return nil, err
	}

	h := &AudioHandle{
		recorder: r,
		stream:   stream,
		done:     make(chan struct{}),
	}
	go h.capture(r.maxBytes)
	return h, nil
}

// Busy reports whether a handle currently holds the microphone.
func (r *AudioRecorder) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

func (r *AudioRecorder) release() {
	r.mu.Lock()
	r.held = false
	r.mu.Unlock()
}

// AudioHandle is one in-progress recording.
type AudioHandle struct {
	readErr     error
	stream      Stream
	recorder    *AudioRecorder
	done        chan struct{}
	endErr      error
	payload     model.AudioPayload
	buf         bytes.Buffer
	endOnce     sync.Once
	releaseOnce sync.Once
	truncated   bool
}

func (h *AudioHandle) capture(maxBytes int64) {
	defer close(h.done)

	var src io.Reader = h.stream
	if maxBytes > 0 {
		src = io.LimitReader(h.stream, maxBytes)
	}
	n, err := io.Copy(&h.buf, src)
	if err != nil {
		h.readErr = err
	}
	if maxBytes > 0 && n >= maxBytes {
		h.truncated = true
		if stopErr := h.stream.Stop(); stopErr != nil {
			slog.Warn("Failed to stop microphone at size limit", "error", stopErr)
		}
	}
}

// End stops the recording, waits for buffered audio, releases the
// microphone and returns the payload. Every call after the first returns
// the same payload and error.
func (h *AudioHandle) End(ctx context.Context) (model.AudioPayload, error) {
	h.endOnce.Do(func() {
		h.payload, h.endErr = h.finish(ctx)
	})
	return h.payload, h.endErr
}

func (h *AudioHandle) finish(ctx context.Context) (model.AudioPayload, error) {
	defer h.Release()

	if err := h.stream.Stop(); err != nil {
		slog.Debug("Microphone stop returned error", "error", err)
	}

	select {
	case <-h.done:
	case <-ctx.Done():
		return model.AudioPayload{}, ctx.Err()
	}

	if h.truncated {
		slog.Warn("Recording reached size limit and was cut short", "bytes", h.buf.Len())
	}
	if h.buf.Len() == 0 {
		if h.readErr != nil {
			return model.AudioPayload{}, fmt.Errorf("%w: %w", common.ErrDeviceUnavailable, h.readErr)
		}
		return model.AudioPayload{}, common.ErrEmptyRecording
	}
	if h.readErr != nil {
		slog.Debug("Recording ended with read error", "error", h.readErr, "bytes", h.buf.Len())
	}

	data := make([]byte, h.buf.Len())
	copy(data, h.buf.Bytes())
	return model.AudioPayload{Data: data, MIMEType: h.stream.MIMEType()}, nil
}

// Release closes the device without producing a payload. It is safe to call
// at any time, any number of times, including after End.
func (h *AudioHandle) Release() {
	h.releaseOnce.Do(func() {
		if err := h.stream.Close(); err != nil {
			slog.Debug("Microphone close returned error", "error", err)
		}
		h.recorder.release()
	})
}
