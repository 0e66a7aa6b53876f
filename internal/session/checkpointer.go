package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/checkpoint"
	"github.com/petasbytes/agentloop/memory"
)

const DefaultSaveAttempts = 3

// ErrMemoryOnly marks the switch to unpersisted operation.
var ErrMemoryOnly = errors.New("checkpointing disabled: continuing in memory-only mode")

// Checkpointer persists one session through a checkpoint.Store, retrying
// failed saves and giving up on persistence once they are exhausted.
// It is not safe for concurrent use; a session has a single loop.
type Checkpointer struct {
	store    checkpoint.Store
	id       string
	attempts int
	backoff  gax.Backoff
	log      zerolog.Logger

	memoryOnly bool
}

type CheckpointerOption func(*Checkpointer)

func WithSaveAttempts(n int) CheckpointerOption {
	return func(c *Checkpointer) { c.attempts = n }
}

func WithSaveBackoff(b gax.Backoff) CheckpointerOption {
	return func(c *Checkpointer) { c.backoff = b }
}

func WithCheckpointLogger(l zerolog.Logger) CheckpointerOption {
	return func(c *Checkpointer) { c.log = l }
}

// NewCheckpointer binds store to session id. A nil store starts in memory-only mode.
func NewCheckpointer(store checkpoint.Store, id string, opts ...CheckpointerOption) *Checkpointer {
	c := &Checkpointer{
		store:    store,
		id:       id,
		attempts: DefaultSaveAttempts,
		backoff: gax.Backoff{
			Initial:    200 * time.Millisecond,
			Max:        2 * time.Second,
			Multiplier: 2,
		},
		log:        zerolog.Nop(),
		memoryOnly: store == nil,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

// MemoryOnly reports whether saves are being skipped.
func (c *Checkpointer) MemoryOnly() bool { return c.memoryOnly }

// Load returns the stored turns, or none for a new session. On failure the
// Checkpointer drops to memory-only so the unreadable record is never overwritten.
func (c *Checkpointer) Load(ctx context.Context) ([]memory.Turn, error) {
	if c.memoryOnly {
		return nil, nil
	}
	s, err := c.store.Load(ctx, c.id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.memoryOnly = true
		c.log.Warn().Err(err).Str("session_id", c.id).Msg("session load failed; persistence disabled")
		return nil, fmt.Errorf("%w: %w", ErrMemoryOnly, err)
	}
	if s == nil {
		return nil, nil
	}
	return s.Turns, nil
}

// Save writes s, retrying with backoff. When every attempt fails it switches
// to memory-only and returns an error wrapping ErrMemoryOnly and the last
// failure. Later calls are no-ops.
func (c *Checkpointer) Save(ctx context.Context, s memory.Session) error {
	if c.memoryOnly {
		return nil
	}

	bo := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.store.Save(ctx, c.id, s)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if attempt == c.attempts {
			break
		}
		pause := bo.Pause()
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("pause", pause).Str("session_id", c.id).Msg("checkpoint save failed; retrying")
		if err := gax.Sleep(ctx, pause); err != nil {
			return ctx.Err()
		}
	}

	c.memoryOnly = true
	c.log.Warn().Err(lastErr).Int("attempts", c.attempts).Str("session_id", c.id).Msg("checkpoint save failed; persistence disabled")
	return fmt.Errorf("%w: %w", ErrMemoryOnly, lastErr)
}
