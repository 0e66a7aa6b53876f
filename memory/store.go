package memory

import "sync"

// Store is the ordered, append-only turn log of one session.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewStore returns a Store seeded with turns, e.g. a session loaded from a checkpoint.
func NewStore(turns ...Turn) *Store {
	s := &Store{turns: make([]Turn, 0, len(turns))}
	s.turns = append(s.turns, turns...)
	return s
}

// Append adds turns at the end of the log, in argument order.
func (s *Store) Append(turns ...Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turns...)
	s.mu.Unlock()
}

// All returns a copy of the log in append order.
func (s *Store) All() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Last returns the newest turn with the given role.
func (s *Store) Last(role Role) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LastOf(s.turns, role)
}
