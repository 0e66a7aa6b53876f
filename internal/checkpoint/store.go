// Package checkpoint persists session transcripts keyed by session id.
//
// Every backend stores the same record: the session's turns encoded as
// newline-delimited JSON, one Turn per line. Save replaces the record
// atomically; Load returns (nil, nil) when nothing was saved yet.
package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/petasbytes/agentloop/memory"
)

// Store is the durable checkpoint boundary.
type Store interface {
	// Load returns the saved session, or nil when the id has never been saved.
	Load(ctx context.Context, sessionID string) (*memory.Session, error)
	// Save replaces the record for sessionID. It returns once the write is durable.
	Save(ctx context.Context, sessionID string, session memory.Session) error
	Close() error
}

// StorageError wraps any backend failure.
type StorageError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *StorageError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoint %s %q: %v", e.Op, e.SessionID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, SessionID: id, Err: err}
}

// ValidateSessionID rejects ids that could escape a directory or collide with key syntax.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("session id cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("session id cannot contain path separators")
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("session id cannot contain null bytes")
	}
	return nil
}
