package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// objectStore is the slice of a GCS bucket the archiver uses.
type objectStore interface {
	put(ctx context.Context, object, contentType string, data []byte) error
	get(ctx context.Context, object string) ([]byte, error)
	close() error
}

// GCSArchiver uploads media to a Cloud Storage bucket. Credentials come from
// Application Default Credentials unless a credentials file is configured.
type GCSArchiver struct {
	store  objectStore
	now    func() time.Time
	bucket string
	prefix string
}

// NewGCSArchiver connects to cfg.Bucket.
func NewGCSArchiver(ctx context.Context, cfg Config) (*GCSArchiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive: bucket is required for %q", KindGCS)
	}

	opts, err := clientOptions(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return newGCSArchiver(&gcsStore{client: client, bucket: cfg.Bucket}, cfg.Bucket, cfg.Prefix), nil
}

// clientOptions loads a service account key for the bucket scope. An empty
// path leaves the client on Application Default Credentials.
func clientOptions(ctx context.Context, credentialsFile string) ([]option.ClientOption, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", credentialsFile, err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

func newGCSArchiver(store objectStore, bucket, prefix string) *GCSArchiver {
	return &GCSArchiver{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Archive uploads data and returns a gs:// URI.
func (a *GCSArchiver) Archive(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	object := ObjectName(a.now(), name, mimeType)
	if a.prefix != "" {
		object = path.Join(a.prefix, object)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := a.store.put(ctx, object, mimeType, data); err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return "gs://" + a.bucket + "/" + object, nil
}

// Fetch downloads an object by its gs:// URI.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	if bucket != a.bucket {
		return nil, fmt.Errorf("object %s is not in bucket %s", uri, a.bucket)
	}
	return a.store.get(ctx, object)
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.store.close()
}

// ParseGCSURI splits gs://bucket/path/to/object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the last path element of an archive URI.
// e.g., "gs://bucket/2024/05/17/abc-receipt.png" → "abc-receipt.png"
func FilenameFromURI(uri string) string {
	trimmed := uri
	for _, scheme := range []string{"gs://", "file://"} {
		trimmed = strings.TrimPrefix(trimmed, scheme)
	}
	return path.Base(trimmed)
}

type gcsStore struct {
	client *storage.Client
	bucket string
}

func (s *gcsStore) put(ctx context.Context, object, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy data to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func (s *gcsStore) get(ctx context.Context, object string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func (s *gcsStore) close() error {
	return s.client.Close()
}
