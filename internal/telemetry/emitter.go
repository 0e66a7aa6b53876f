package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventsFile is the name of the JSONL event log inside the artifacts dir.
const EventsFile = "events.jsonl"

// Emitter appends structured events to <dir>/events.jsonl.
// A nil or disabled Emitter drops every event.
type Emitter struct {
	dir     string
	enabled bool

	mu   sync.Mutex
	file *os.File
	log  zerolog.Logger
	diag zerolog.Logger
}

// NewEmitter returns an Emitter writing under dir when enabled is true.
// The file is created lazily on the first event.
func NewEmitter(dir string, enabled bool, diag zerolog.Logger) *Emitter {
	if dir == "" {
		dir = ".agent"
	}
	return &Emitter{dir: dir, enabled: enabled, diag: diag}
}

// Enabled reports whether events are written.
func (e *Emitter) Enabled() bool { return e != nil && e.enabled }

// Path returns the event log location.
func (e *Emitter) Path() string { return filepath.Join(e.dir, EventsFile) }

// Emit writes one event line with an RFC3339Nano "time" and the "event" name.
// Turn and session ids on ctx are attached when present.
func (e *Emitter) Emit(ctx context.Context, name string, fields map[string]any) {
	if !e.Enabled() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		if err := e.open(); err != nil {
			e.diag.Warn().Err(err).Str("event", name).Msg("telemetry: open event log")
			return
		}
	}

	ev := e.log.Log().
		Str("time", time.Now().UTC().Format(time.RFC3339Nano)).
		Str("event", name)
	if id, ok := TurnIDFromContext(ctx); ok {
		ev = ev.Str("turn_id", id)
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		ev = ev.Str("session_id", id)
	}
	ev.Fields(fields).Send()
}

func (e *Emitter) open() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", e.dir, err)
	}
	path := e.Path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	e.file = f
	e.log = zerolog.New(f)
	return nil
}

// Close closes the event log if it was opened.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
