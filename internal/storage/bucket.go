package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DocumentsBucket     = "documents"
	AnnouncementsBucket = "avisos"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Bucket stores uploaded bytes under caller-chosen keys and maps keys to
// fetchable addresses.
type Bucket interface {
	Name() string
	Upload(ctx context.Context, key string, r io.Reader) error
	PublicURL(key string) string
}

// DiskBucket keeps objects under <root>/<name>/<key>. The API serves <root> at
// /uploads, so public URLs are <base>/uploads/<name>/<key>.
type DiskBucket struct {
	name    string
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewDiskBucket(root, name, publicBaseURL string, logger *zap.Logger) (*DiskBucket, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &DiskBucket{
		name:    name,
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}, nil
}

func (b *DiskBucket) Name() string {
	return b.name
}

// Upload writes to a temp file and renames it into place so readers never
// see a partial object.
func (b *DiskBucket) Upload(ctx context.Context, key string, r io.Reader) error {
	target, err := b.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to publish file: %w", err)
	}

	b.logger.Debug("Object stored",
		zap.String("bucket", b.name),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return nil
}

func (b *DiskBucket) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.baseURL + "/uploads/" + url.PathEscape(b.name) + "/" + strings.Join(segments, "/")
}

func (b *DiskBucket) pathFor(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.dir, filepath.FromSlash(clean)), nil
}
