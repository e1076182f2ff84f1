package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/spf13/afero"
)

// ImagePicker produces a photo payload. Select fails with
// common.ErrNoFileChosen or common.ErrInvalidFileType.
type ImagePicker interface {
	Select(ctx context.Context) (model.PhotoPayload, error)
}

// PathPicker reads a file the caller already chose.
type PathPicker struct {
	Fs       afero.Fs
	Path     string
	MaxBytes int64
}

// Select reads and sniffs the image.
func (p PathPicker) Select(_ context.Context) (model.PhotoPayload, error) {
	path := strings.TrimSpace(p.Path)
	if path == "" {
		return model.PhotoPayload{}, common.ErrNoFileChosen
	}

	fs := p.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.PhotoPayload{}, fmt.Errorf("%w: %s does not exist", common.ErrNoFileChosen, path)
		}
		if errors.Is(err, os.ErrPermission) {
			return model.PhotoPayload{}, fmt.Errorf("%w: %w", common.ErrPermissionDenied, err)
		}
		return model.PhotoPayload{}, fmt.Errorf("%w: %w", common.ErrDeviceUnavailable, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var src io.Reader = f
	if p.MaxBytes > 0 {
		src = io.LimitReader(f, p.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return model.PhotoPayload{}, fmt.Errorf("%w: read %s: %w", common.ErrDeviceUnavailable, path, err)
	}

	return imagePayload(filepath.Base(path), data, p.MaxBytes)
}

// BytesPicker wraps an image that is already in memory, such as an upload.
type BytesPicker struct {
	Name     string
	Data     []byte
	MaxBytes int64
}

// Select sniffs the in-memory image.
func (p BytesPicker) Select(_ context.Context) (model.PhotoPayload, error) {
	if len(p.Data) == 0 && p.Name == "" {
		return model.PhotoPayload{}, common.ErrNoFileChosen
	}
	return imagePayload(p.Name, p.Data, p.MaxBytes)
}

func imagePayload(name string, data []byte, maxBytes int64) (model.PhotoPayload, error) {
	if len(data) == 0 {
		return model.PhotoPayload{}, fmt.Errorf("%w: %s is empty", common.ErrInvalidFileType, name)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return model.PhotoPayload{}, fmt.Errorf("%w: %s exceeds %d bytes", common.ErrInvalidFileType, name, maxBytes)
	}
	mimeType, ok := SniffImage(data)
	if !ok {
		return model.PhotoPayload{}, fmt.Errorf("%w: %s looks like %s", common.ErrInvalidFileType, name, mimeType)
	}
	return model.PhotoPayload{Data: data, MIMEType: mimeType, Name: name}, nil
}
