// Package storage stages uploaded documents on the local filesystem so the
// extraction pipeline can read them by path. Files live under a base
// directory and are removed once the analysis finishes.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StagedFile is one stored upload.
type StagedFile struct {
	ID        uuid.UUID
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Store writes uploads under a base directory with sanitized, unique names.
type Store struct {
	baseDir string
}

// NewStore creates the staging store. An empty baseDir falls back to the
// system temp directory.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "loan-affordability")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save copies the upload to disk and returns its staged metadata.
func (s *Store) Save(filename string, r io.Reader) (*StagedFile, error) {
	id := uuid.New()
	stored := fmt.Sprintf("%s_%s", id.String()[:8], sanitizeFilename(filename))
	path := filepath.Join(s.baseDir, stored)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	return &StagedFile{
		ID:        id,
		Name:      filename,
		Path:      path,
		Size:      size,
		CreatedAt: time.Now(),
	}, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Store) Remove(f *StagedFile) error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)
	if name == "" {
		name = "upload"
	}
	return name
}
