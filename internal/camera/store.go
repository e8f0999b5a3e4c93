package camera

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FrameStore persists captured frames to a spool directory and hands back
// the stored path for the package record.
type FrameStore struct {
	dir string
}

// NewFrameStore creates the spool directory if needed and returns a store.
func NewFrameStore(dir string) (*FrameStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame spool dir: %w", err)
	}
	return &FrameStore{dir: dir}, nil
}

// Save writes the frame bytes under a fresh UUID name and returns the path.
func (s *FrameStore) Save(frame Frame) (string, error) {
	path := filepath.Join(s.dir, uuid.New().String()+".jpg")
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	return path, nil
}
