package media

import (
	"context"
	"io"
)

// Stream is an open microphone. Reads return audio bytes until the device
// is stopped, then io.EOF.
type Stream interface {
	io.Reader
	// MIMEType describes the encoding of the bytes read.
	MIMEType() string
	// Stop asks the device to finish the recording. Buffered audio may still
	// be read afterwards.
	Stop() error
	// Close releases the device. Safe to call more than once.
	Close() error
}

// Microphone opens audio streams. Open fails with common.ErrPermissionDenied
// or common.ErrDeviceUnavailable.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}
