// Package local implements a snapshot store on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// Config captures the parameters for the local snapshot store.
type Config struct {
	// Path is the snapshot file, e.g. data/applicant_data.json.
	Path string `mapstructure:"path" yaml:"path"`
}

// SnapshotStore reads and writes the dataset as a single JSON file.
type SnapshotStore struct {
	path string
}

var _ snapshot.Store = (*SnapshotStore)(nil)

// New creates a file-backed snapshot store, creating the parent directory if needed.
func New(cfg Config) (*SnapshotStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	dir := filepath.Dir(cfg.Path)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat snapshot directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("snapshot directory %q is not a directory", dir)
	}
	if info, err := os.Stat(cfg.Path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("snapshot path %q is a directory", cfg.Path)
	}
	return &SnapshotStore{path: cfg.Path}, nil
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Load reads the snapshot; a missing file yields an empty dataset.
func (s *SnapshotStore) Load(_ context.Context) (survey.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return survey.Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	dataset, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", s.path, err)
	}
	return dataset, nil
}

// Save writes the dataset to a temporary file next to the snapshot and renames it into
// place, so a failed write leaves the previous snapshot intact.
func (s *SnapshotStore) Save(_ context.Context, dataset survey.Dataset) error {
	data, err := snapshot.Encode(dataset)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}
