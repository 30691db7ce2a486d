package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements BlobStore against the local filesystem, for
// development setups that run without MinIO (storage.backend = "local").
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Ping verifies the base directory still exists; it does not test that it
// is writable.
func (s *LocalStore) Ping(context.Context) error {
	if _, err := os.Stat(s.baseDir); err != nil {
		return fmt.Errorf("stat base dir: %w", err)
	}
	return nil
}

// DeletePrefix removes every file under the directory implied by prefix.
// Keys in this store always look like "{root}/{disc_id}/...", so a prefix
// is a directory, not a partial filename.
func (s *LocalStore) DeletePrefix(_ context.Context, prefix string) error {
	dir := s.path(strings.TrimSuffix(prefix, "/"))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove prefix %s: %w", prefix, err)
	}
	return nil
}
