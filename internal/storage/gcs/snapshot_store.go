// Package gcs provides a snapshot store backed by a Google Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// Config captures the bucket and object holding the snapshot.
type Config struct {
	Bucket string
	Object string
}

// SnapshotStore reads and writes the snapshot as one GCS object. An object upload only
// becomes visible once the writer is closed successfully, so a failed Save leaves the
// previous object in place.
type SnapshotStore struct {
	client *storage.Client
	bucket string
	object string
}

var _ snapshot.Store = (*SnapshotStore)(nil)

// New creates a GCS-backed snapshot store.
func New(client *storage.Client, cfg Config) (*SnapshotStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &SnapshotStore{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// URI returns the gs:// location of the snapshot.
func (s *SnapshotStore) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Load downloads the snapshot; a missing object yields an empty dataset.
func (s *SnapshotStore) Load(ctx context.Context) (survey.Dataset, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return survey.Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.URI(), err)
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URI(), err)
	}
	dataset, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.URI(), err)
	}
	return dataset, nil
}

// Save uploads the encoded dataset, replacing the previous object.
func (s *SnapshotStore) Save(ctx context.Context, dataset survey.Dataset) error {
	data, err := snapshot.Encode(dataset)
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = snapshot.ContentType
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write %s: %w (close writer: %v)", s.URI(), err, closeErr)
		}
		return fmt.Errorf("write %s: %w", s.URI(), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", s.URI(), err)
	}
	return nil
}
