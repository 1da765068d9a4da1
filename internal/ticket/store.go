package ticket

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Store interface {
	Save(code string, data []byte) (string, error)
	RemoveOlderThan(cutoff time.Time) (int, error)
}

// FileStore keeps generated ticket documents on local disk, one file per
// reservation code.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(code string, data []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("ticket_%s.txt", code))

	err := os.WriteFile(path, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to store ticket %s: %w", code, err)
	}

	return path, nil
}

// RemoveOlderThan deletes stored documents whose modification time is before
// the cutoff. A file that cannot be removed does not stop the rest; its error
// is joined into the returned error alongside the removal count.
func (s *FileStore) RemoveOlderThan(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	var (
		removed int
		errs    []error
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		err = os.Remove(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		removed++
	}

	return removed, errors.Join(errs...)
}
