package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/spf13/afero"
)

// ReaderMicrophone plays back a pre-recorded file as if it were live input.
type ReaderMicrophone struct {
	fs       afero.Fs
	path     string
	mimeType string
}

// NewReaderMicrophone streams the file at path from fs.
func NewReaderMicrophone(fs afero.Fs, path, mimeType string) *ReaderMicrophone {
	if mimeType == "" {
		mimeType = AudioMIMEType(path)
	}
	return &ReaderMicrophone{fs: fs, path: path, mimeType: mimeType}
}

// Open opens the recording.
func (m *ReaderMicrophone) Open(_ context.Context) (Stream, error) {
	f, err := m.fs.Open(m.path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", common.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrDeviceUnavailable, err)
	}
	return &readerStream{r: f, closer: f, mimeType: m.mimeType}, nil
}

// NewBytesMicrophone plays back an in-memory recording.
func NewBytesMicrophone(data []byte, mimeType string) Microphone {
	return bytesMicrophone{data: data, mimeType: mimeType}
}

type bytesMicrophone struct {
	mimeType string
	data     []byte
}

func (m bytesMicrophone) Open(_ context.Context) (Stream, error) {
	return &readerStream{r: bytes.NewReader(m.data), mimeType: m.mimeType}, nil
}

type readerStream struct {
	r        io.Reader
	closer   io.Closer
	mimeType string
	mu       sync.Mutex
	closed   bool
}

func (s *readerStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, io.EOF
	}
	return s.r.Read(p)
}

func (s *readerStream) MIMEType() string { return s.mimeType }

// Stop is a no-op; a recording file ends on its own.
func (s *readerStream) Stop() error { return nil }

func (s *readerStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
