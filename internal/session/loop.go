// Package session runs the interactive read-eval-print loop for one session id.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/metrics"
	"github.com/petasbytes/agentloop/internal/runner"
	"github.com/petasbytes/agentloop/internal/telemetry"
	"github.com/petasbytes/agentloop/memory"
)

const (
	promptText  = "\u001b[94mYou\u001b[0m: "
	replyPrefix = "\u001b[93mAI\u001b[0m: "
	goodbyeText = "Goodbye!"
)

// Executor produces the turns answering the newest user Turn in history.
type Executor interface {
	Run(ctx context.Context, history []memory.Turn) (runner.Result, error)
}

type Loop struct {
	id     string
	exec   Executor
	ckpt   *Checkpointer
	turns  *memory.Store
	in     io.Reader
	out    io.Writer
	log    zerolog.Logger
	events *telemetry.Emitter
}

type Option func(*Loop)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(l *Loop) { l.in, l.out = in, out }
}

func WithLogger(lg zerolog.Logger) Option { return func(l *Loop) { l.log = lg } }

func WithEmitter(e *telemetry.Emitter) Option { return func(l *Loop) { l.events = e } }

func New(id string, exec Executor, ckpt *Checkpointer, opts ...Option) *Loop {
	l := &Loop{
		id:    id,
		exec:  exec,
		ckpt:  ckpt,
		turns: memory.NewStore(),
		in:    os.Stdin,
		out:   os.Stdout,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With().Str("session_id", id).Logger()
	return l
}

// Turns returns the committed transcript.
func (l *Loop) Turns() []memory.Turn { return l.turns.All() }

func isExit(line string) bool {
	return strings.EqualFold(line, "exit") || strings.EqualFold(line, "bye")
}

// Run loads the session and serves lines until an exit sentinel, end of
// input, or cancellation. Cancellation returns ctx.Err(); the in-flight turn
// is dropped and the transcript stays at its last committed state.
func (l *Loop) Run(ctx context.Context) error {
	ctx = telemetry.WithSessionID(ctx, l.id)

	prior, err := l.ckpt.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(l.out, "warning: could not load session %q (%v); continuing in memory-only mode\n", l.id, err)
	}
	l.turns = memory.NewStore(prior...)
	defer l.logStats()

	if len(prior) > 0 {
		l.log.Info().Int("turns", len(prior)).Msg("session resumed")
	}
	fmt.Fprintf(l.out, "Chat session %s (type exit or bye to quit)\n", l.id)

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(l.in, done)

	for {
		fmt.Fprint(l.out, promptText)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.out)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(l.out)
			if err := <-readErr; err != nil {
				l.log.Warn().Err(err).Msg("stdin read error")
			}
			return nil
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case isExit(line):
			fmt.Fprintln(l.out, goodbyeText)
			return nil
		}

		if err := l.turn(ctx, line); err != nil {
			return err
		}
	}
}

// turn stages the user Turn, runs the executor, saves, and only then commits.
// A save that ends in memory-only mode still commits; a cancelled one does not.
func (l *Loop) turn(ctx context.Context, line string) error {
	ctx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())
	l.events.EmitLocalFeatures(ctx, line)

	staged := memory.UserTurn(line)
	history := append(l.turns.All(), staged)

	res, err := l.exec.Run(ctx, history)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Error().Err(err).Msg("turn failed")
		fmt.Fprintf(l.out, "error: %v\n", err)
		return nil
	}

	next := make([]memory.Turn, 0, len(history)+len(res.Turns))
	next = append(append(next, history...), res.Turns...)

	// The store is written first; the in-memory log never runs ahead of a
	// save that was cancelled.
	if err := l.ckpt.Save(ctx, memory.Session{ID: l.id, Turns: next}); err != nil {
		if !errors.Is(err, ErrMemoryOnly) {
			return err
		}
		fmt.Fprintln(l.out, "warning: could not save session; continuing in memory-only mode, new turns will not be persisted")
	}
	l.turns.Append(staged)
	l.turns.Append(res.Turns...)

	fmt.Fprintf(l.out, "%s%s\n", replyPrefix, res.Reply())
	return nil
}

func (l *Loop) logStats() {
	st := metrics.Summarize(l.turns.All())
	l.log.Info().
		Object("stats", st).
		Bool("memory_only", l.ckpt.MemoryOnly()).
		Msg("session closed")
}

// readLines feeds lines from r until EOF or done is closed. The error
// channel yields the scanner's error once lines is closed.
func readLines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(r)
		s.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-done:
				errc <- nil
				return
			}
		}
		errc <- s.Err()
	}()
	return lines, errc
}
