package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps images on disk under root and serves them below baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory served at the base URL.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes data to root/name.
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes the file behind url.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || name == "" || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return nil
}
