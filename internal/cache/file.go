package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores the snapshot document as a single JSON file on local
// disk. This is the default backend.
type FileBackend struct {
	path string
}

func NewFileBackend(dir, filename string) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "translations.json"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
	}
	return &FileBackend{path: filepath.Join(dir, filename)}, nil
}

func (b *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Save(data []byte) error {
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func (b *FileBackend) Clear() error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (b *FileBackend) Location() string {
	return b.path
}
