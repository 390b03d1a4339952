package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Archive persists raw monitoring frames for offline inspection. Frames
// only; aggregated results are never written anywhere.
type Archive interface {
	SaveFrame(data []byte) (string, error)
	OpenFrame(name string) (io.ReadSeekCloser, error)
	RemoveFrame(name string) error
}

// SnapshotArchive is a flat directory of JPEG frames with generated names.
type SnapshotArchive struct {
	basePath string
}

func NewSnapshotArchive(basePath string) (*SnapshotArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &SnapshotArchive{basePath: basePath}, nil
}

// SaveFrame writes one frame and returns its generated filename.
func (a *SnapshotArchive) SaveFrame(data []byte) (string, error) {
	filename := uuid.New().String() + ".jpg"
	fullPath := filepath.Join(a.basePath, filename)

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	return filename, nil
}

func (a *SnapshotArchive) OpenFrame(name string) (io.ReadSeekCloser, error) {
	cleanPath := filepath.Clean(name)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid path")
	}

	file, err := os.Open(filepath.Join(a.basePath, cleanPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	return file, nil
}

func (a *SnapshotArchive) RemoveFrame(name string) error {
	cleanPath := filepath.Clean(name)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid path")
	}

	if err := os.Remove(filepath.Join(a.basePath, cleanPath)); err != nil {
		return fmt.Errorf("failed to remove frame: %w", err)
	}
	return nil
}
