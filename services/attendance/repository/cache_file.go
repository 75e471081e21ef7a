package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/natefinch/atomic"

	"siapguru/domain"
)

type fileCache struct {
	path string
}

// NewFileCache stores the snapshot as <dir>/<key>.json. Writes replace the
// file atomically so a crash never leaves a torn snapshot behind.
func NewFileCache(dir, key string) (domain.LocalCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory %s: %w", dir, err)
	}
	return &fileCache{path: filepath.Join(dir, key+".json")}, nil
}

func (fc *fileCache) Load(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := os.ReadFile(fc.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("could not decode snapshot %s: %w", fc.path, err)
	}
	return &snap, nil
}

func (fc *fileCache) Save(ctx context.Context, snap *domain.Snapshot) error {
	raw, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	if err := atomic.WriteFile(fc.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("could not write snapshot: %w", err)
	}
	return nil
}
