package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/googleapis/gax-go/v2"

	"github.com/petasbytes/agentloop/internal/checkpoint"
	"github.com/petasbytes/agentloop/internal/runner"
	"github.com/petasbytes/agentloop/internal/session"
	"github.com/petasbytes/agentloop/memory"
)

// echoExec answers every user line with "re: <line>" and records the histories it saw.
type echoExec struct {
	mu    sync.Mutex
	calls [][]memory.Turn
	block bool
}

func (e *echoExec) Run(ctx context.Context, history []memory.Turn) (runner.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]memory.Turn(nil), history...))
	e.mu.Unlock()

	if e.block {
		<-ctx.Done()
		return runner.Result{}, ctx.Err()
	}
	last := history[len(history)-1]
	return runner.Result{Turns: []memory.Turn{memory.AssistantTurn("re: " + last.Content)}}, nil
}

func (e *echoExec) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// flakyStore wraps a MemoryStore and fails the first failSaves saves.
type flakyStore struct {
	*checkpoint.MemoryStore
	mu        sync.Mutex
	failSaves int
	saves     int
	loadErr   error
}

func newFlakyStore(failSaves int) *flakyStore {
	return &flakyStore{MemoryStore: checkpoint.NewMemoryStore(), failSaves: failSaves}
}

func (s *flakyStore) Load(ctx context.Context, id string) (*memory.Session, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx, id)
}

func (s *flakyStore) Save(ctx context.Context, id string, sess memory.Session) error {
	s.mu.Lock()
	s.saves++
	n := s.saves
	s.mu.Unlock()
	if n <= s.failSaves {
		return &checkpoint.StorageError{Op: "save", SessionID: id, Err: errors.New("disk full")}
	}
	return s.MemoryStore.Save(ctx, id, sess)
}

func (s *flakyStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var fastSaves = session.WithSaveBackoff(gax.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1})

// stallingStore blocks every Save until ctx is done.
type stallingStore struct {
	*checkpoint.MemoryStore
	entered chan struct{}
	once    sync.Once
}

func newStallingStore() *stallingStore {
	return &stallingStore{MemoryStore: checkpoint.NewMemoryStore(), entered: make(chan struct{})}
}

func (s *stallingStore) Save(ctx context.Context, id string, _ memory.Session) error {
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return &checkpoint.StorageError{Op: "save", SessionID: id, Err: ctx.Err()}
}
