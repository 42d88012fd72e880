// Package files holds the blob-storage and text-extraction boundaries used
// by the upload pipeline.
package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists uploaded file bytes and returns a reference URL.
type BlobStore interface {
	Save(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

// Extractor derives text content from an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, contentType string, r io.Reader) (string, error)
}

// LocalStore writes blobs to a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore ensures the directory exists and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, name string, _ string, r io.Reader) (string, error) {
	// Random prefix keeps colliding client names apart.
	stored := uuid.NewString() + "-" + filepath.Base(name)
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return "/files/" + stored, nil
}

// PlainTextExtractor returns the raw bytes for text content types and an
// empty string for everything else.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, contentType string, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "text/") && contentType != "application/json" {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	return string(data), nil
}
