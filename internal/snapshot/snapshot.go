// Package snapshot defines the persisted form of the dataset: one JSON array of
// entries, overwritten wholesale on every run.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

// ContentType is the media type of an encoded snapshot.
const ContentType = "application/json"

// Store loads and saves the dataset snapshot. Load returns an empty dataset when no
// snapshot exists yet.
type Store interface {
	Load(ctx context.Context) (survey.Dataset, error)
	Save(ctx context.Context, dataset survey.Dataset) error
}

// Encode renders the dataset as an indented JSON array. HTML characters in comments
// are written as-is.
func Encode(dataset survey.Dataset) ([]byte, error) {
	if dataset == nil {
		dataset = survey.Dataset{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(dataset); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot. Blank input decodes to an empty dataset.
func Decode(data []byte) (survey.Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return survey.Dataset{}, nil
	}
	var dataset survey.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if dataset == nil {
		dataset = survey.Dataset{}
	}
	return dataset, nil
}
