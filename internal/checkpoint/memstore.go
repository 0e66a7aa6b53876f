package checkpoint

import (
	"context"
	"sync"

	"github.com/petasbytes/agentloop/memory"
)

// MemoryStore keeps encoded records in a process-local map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*memory.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	s.mu.RLock()
	data, ok := s.records[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	turns, err := DecodeTurns(data)
	if err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	return &memory.Session{ID: sessionID, Turns: turns}, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, session memory.Session) error {
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
	s.mu.Lock()
	s.records[sessionID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
