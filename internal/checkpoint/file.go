package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petasbytes/agentloop/memory"
)

// FileStore keeps one <id>.jsonl file per session under a directory.
type FileStore struct {
	dir   string
	locks *keyedMutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, storageErr("open", "", fmt.Errorf("file store directory is required"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("open", "", fmt.Errorf("create directory: %w", err))
	}
	return &FileStore{dir: dir, locks: newKeyedMutex()}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

func (s *FileStore) Load(ctx context.Context, sessionID string) (*memory.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	b, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, storageErr("load", sessionID, err)
	}
	turns, err := DecodeTurns(b)
	if err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	return &memory.Session{ID: sessionID, Turns: turns}, nil
}

// Save writes a temp file in the same directory, syncs it, renames it over
// the target and syncs the directory.
func (s *FileStore) Save(ctx context.Context, sessionID string, session memory.Session) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return storageErr("save", sessionID, err)
	}
	if err := ctx.Err(); err != nil {
		return storageErr("save", sessionID, err)
	}
	data, err := EncodeTurns(session.Turns)
	if err != nil {
		return storageErr("save", sessionID, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := writeAtomic(s.dir, s.path(sessionID), data); err != nil {
		return storageErr("save", sessionID, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".ckpt-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("rename: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()
	// Some filesystems reject fsync on directories; the rename already happened.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
