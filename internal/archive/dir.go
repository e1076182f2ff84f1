package archive

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DirArchiver writes media below a root directory.
type DirArchiver struct {
	fs   afero.Fs
	now  func() time.Time
	root string
}

// NewDirArchiver archives into root on fs. A nil fs means the OS filesystem.
func NewDirArchiver(fs afero.Fs, root string) *DirArchiver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DirArchiver{fs: fs, root: filepath.Clean(root), now: time.Now}
}

// Archive writes data and returns a file:// URI.
func (a *DirArchiver) Archive(_ context.Context, name, mimeType string, data []byte) (string, error) {
	full := filepath.Join(a.root, filepath.FromSlash(ObjectName(a.now(), name, mimeType)))
	if err := a.fs.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	if err := afero.WriteFile(a.fs, full, data, 0600); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}

// Fetch reads back a URI returned by Archive. Paths outside the root are rejected.
func (a *DirArchiver) Fetch(_ context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return nil, fmt.Errorf("invalid archive URI: %s", uri)
	}
	full := filepath.Clean(filepath.FromSlash(u.Path))
	if full != a.root && !strings.HasPrefix(full, a.root+string(filepath.Separator)) {
		return nil, fmt.Errorf("archive URI outside %s: %s", a.root, uri)
	}
	data, err := afero.ReadFile(a.fs, full)
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}

// Close implements Store.
func (a *DirArchiver) Close() error {
	return nil
}
