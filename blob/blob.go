// Package blob stores uploaded images and generated trainer documents.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/padraicbc/trainerpages/config"
)

// Store is the interface for pluggable object storage backends.
type Store interface {
	// Put writes data under key and returns the URL the object is reachable at.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// URL returns a public or signed URL for key without checking it exists.
	URL(ctx context.Context, key string) (string, error)
}

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("blob: object not found")

// New returns the Store selected by cfg.Driver. Filesystem is the default.
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "", "filesystem":
		dir := cfg.Directory
		if dir == "" {
			dir = "./.data/blobs"
		}
		return NewFilesystemStore(dir, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported blob driver: %s", cfg.Driver)
}

// CleanKey normalises an object key and rejects keys that escape the store root.
func CleanKey(key string) (string, error) {
	k := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return k, nil
}

// DocumentKey is where a trainer's JSON document lives.
func DocumentKey(slug string) string {
	return "trainers/" + slug + ".json"
}

// SiteKey is where a trainer's rendered microsite lives.
func SiteKey(slug string) string {
	return "trainers/" + slug + "/index.html"
}
