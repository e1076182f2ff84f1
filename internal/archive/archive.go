// Package archive keeps the original photo and audio of a capture next to
// the stored transaction.
package archive

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/google/uuid"
)

// Archive kinds accepted by New.
const (
	KindNone = "none"
	KindDir  = "dir"
	KindGCS  = "gcs"
)

// Config selects and configures an archive backend.
type Config struct {
	Kind            string
	Path            string
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// Store is an Archiver that can also read back what it wrote.
type Store interface {
	Archive(ctx context.Context, name, mimeType string, data []byte) (string, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Close() error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ObjectName builds a date-partitioned, collision-free name such as
// "2024/05/17/<uuid>-receipt.png".
func ObjectName(now time.Time, name, mimeType string) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), path.Ext(name))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
	if base == "" || base == "." {
		base = "capture"
	}
	return fmt.Sprintf("%s/%s-%s%s", now.UTC().Format("2006/01/02"), uuid.NewString(), base, extension(mimeType))
}

func extension(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if ext, ok := imageExtensions[base]; ok {
		return ext
	}
	if strings.HasPrefix(base, "audio/") {
		return media.AudioExtension(base)
	}
	return ".bin"
}

// New builds the configured store. KindNone and an empty kind return nil.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindNone:
		return nil, nil
	case KindDir:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("archive: path is required for %q", KindDir)
		}
		return NewDirArchiver(nil, cfg.Path), nil
	case KindGCS:
		a, err := NewGCSArchiver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("archive: unknown kind %q", cfg.Kind)
	}
}
