package media

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func newMemFs(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, data := range files {
		require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	}
	return fs
}

func TestPathPicker_Select(t *testing.T) {
	fs := newMemFs(t, map[string][]byte{
		"/photos/receipt.png":  pngHeader,
		"/photos/receipt.jpg":  jpegHeader,
		"/photos/fake.png":     []byte("definitely just text"),
		"/photos/empty.png":    {},
		"/photos/big-scan.png": append(append([]byte{}, pngHeader...), make([]byte, 64)...),
	})

	tests := []struct {
		wantErr  error
		name     string
		path     string
		wantMIME string
		maxBytes int64
	}{
		{name: "png", path: "/photos/receipt.png", wantMIME: "image/png"},
		{name: "jpeg", path: "/photos/receipt.jpg", wantMIME: "image/jpeg"},
		{name: "extension lies", path: "/photos/fake.png", wantErr: common.ErrInvalidFileType},
		{name: "empty file", path: "/photos/empty.png", wantErr: common.ErrInvalidFileType},
		{name: "too large", path: "/photos/big-scan.png", maxBytes: 32, wantErr: common.ErrInvalidFileType},
		{name: "no path", path: "  ", wantErr: common.ErrNoFileChosen},
		{name: "missing file", path: "/photos/nope.png", wantErr: common.ErrNoFileChosen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathPicker{Fs: fs, Path: tt.path, MaxBytes: tt.maxBytes}.Select(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, got.MIMEType)
			assert.NotEmpty(t, got.Data)
			assert.NotEmpty(t, got.Name)
		})
	}
}

func TestBytesPicker_Select(t *testing.T) {
	got, err := BytesPicker{Name: "upload.png", Data: pngHeader}.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MIMEType)
	assert.Equal(t, "upload.png", got.Name)

	_, err = BytesPicker{}.Select(context.Background())
	assert.ErrorIs(t, err, common.ErrNoFileChosen)

	_, err = BytesPicker{Name: "notes.txt", Data: []byte("hello")}.Select(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidFileType)
}

func TestAudioMIMEType(t *testing.T) {
	assert.Equal(t, "audio/wav", AudioMIMEType("a.WAV"))
	assert.Equal(t, "audio/mpeg", AudioMIMEType("a.mp3"))
	assert.Equal(t, "audio/webm", AudioMIMEType("a"))
	assert.Equal(t, ".ogg", AudioExtension("audio/ogg; codecs=opus"))
	assert.Equal(t, ".webm", AudioExtension("application/unknown"))
	assert.True(t, IsAudioFile("memo.M4A"))
	assert.False(t, IsAudioFile("receipt.png"))
}
