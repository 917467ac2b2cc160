package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StoredFile describes a file accepted by the store.
type StoredFile struct {
	StoredName string
	SizeBytes  int64
}

// FileStore accepts uploaded file bytes and returns storage metadata.
type FileStore interface {
	Save(originalName string, content io.Reader) (StoredFile, error)
}

// DiskStore keeps uploads in a local directory under generated names.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes content under a unique name, preserving the extension.
func (s *DiskStore) Save(originalName string, content io.Reader) (StoredFile, error) {
	storedName := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, content)
	if err != nil {
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}
	return StoredFile{StoredName: storedName, SizeBytes: size}, nil
}
