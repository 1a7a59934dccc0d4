package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

type fileStore struct {
	root string
}

// NewFileStore creates a Store backed by the filesystem. Each session is
// stored as <root>/<id>.json.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var sessions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, fileExt))
	}
	return sessions, nil
}

func (s *fileStore) Load(_ context.Context, session string) (Record, error) {
	data, err := os.ReadFile(s.path(session))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotArchived, session)
		}
		return Record{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, session, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, session, err)
	}
	return record, nil
}

// Save writes via a temp file and rename, so a crash mid-write never
// leaves a truncated archive.
func (s *fileStore) Save(_ context.Context, record Record) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}

	if err := os.Rename(tmpName, s.path(record.Session)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, record.Session, err)
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context, session string) error {
	if err := os.Remove(s.path(session)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete failed: %s: %w", session, err)
	}
	return nil
}

func (s *fileStore) path(session string) string {
	return filepath.Join(s.root, session+fileExt)
}
