package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FilesystemStore keeps objects under a local directory. The server exposes the
// directory at BaseURL, so URLs are plain links.
type FilesystemStore struct {
	dir     string
	baseURL string
}

// NewFilesystemStore creates the directory if it does not exist.
func NewFilesystemStore(dir, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemStore{dir: dir, baseURL: baseURL}, nil
}

// Dir is the root directory, for mounting as a static route.
func (f *FilesystemStore) Dir() string { return f.dir }

func (f *FilesystemStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	p := filepath.Join(f.dir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	// Write atomically
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", err
	}
	return f.baseURL + "/" + k, nil
}

func (f *FilesystemStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(k)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (f *FilesystemStore) URL(_ context.Context, key string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return f.baseURL + "/" + k, nil
}
