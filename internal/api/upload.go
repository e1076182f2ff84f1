package api

import (
	"context"
	"sync"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/media"
)

// uploadMicrophone replays the most recent audio upload. Each API session
// owns one, wrapped in an AudioRecorder.
type uploadMicrophone struct {
	mimeType string
	data     []byte
	mu       sync.Mutex
}

func (m *uploadMicrophone) load(data []byte, mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.mimeType = mimeType
}

// Open implements media.Microphone. The upload is consumed by the first Open.
func (m *uploadMicrophone) Open(ctx context.Context) (media.Stream, error) {
	m.mu.Lock()
	data, mimeType := m.data, m.mimeType
	m.data = nil
	m.mu.Unlock()

	if data == nil {
		return nil, common.ErrDeviceUnavailable
	}
	return media.NewBytesMicrophone(data, mimeType).Open(ctx)
}
