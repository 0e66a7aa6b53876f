package runner

import (
	"context"
	"errors"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/provider"
	"github.com/petasbytes/agentloop/internal/telemetry"
	"github.com/petasbytes/agentloop/internal/windowing"
	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

const (
	DefaultRetryBound     = 3
	DefaultIterationBound = 8

	// FallbackText ends a turn whose model kept requesting tools past the bound.
	FallbackText = "unable to complete the request: tool call limit reached"
)

// State is a position in the turn state machine.
type State int

const (
	AwaitingModel State = iota
	AwaitingTool
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting_model"
	case AwaitingTool:
		return "awaiting_tool"
	case Done:
		return "done"
	}
	return "unknown"
}

// Stats describes what one Run did.
type Stats struct {
	ModelCalls int
	Retries    int
	ToolCalls  int
	ToolErrors int
	Usage      provider.Usage
	// LimitReached is set when the run ended on FallbackText.
	LimitReached bool
	// ModelFailed is set when the run ended on an error Turn.
	ModelFailed bool
}

// Result holds the Turns produced by a Run, in order. They are not yet part
// of the session; the caller commits them.
type Result struct {
	Turns []memory.Turn
	Stats Stats
}

// Reply returns the content of the last assistant Turn produced.
func (r Result) Reply() string {
	t, _ := memory.LastOf(r.Turns, memory.RoleAssistant)
	return t.Content
}

type Runner struct {
	gen     provider.Generator
	reg     *tools.Registry
	events  *telemetry.Emitter
	log     zerolog.Logger
	counter windowing.TokenCounter

	retryBound     int
	iterationBound int
	tokenBudget    int
	system         string
	model          string
	maxTokens      int
	backoff        gax.Backoff
}

type Option func(*Runner)

// WithRetryBound sets the number of model call attempts per step.
func WithRetryBound(n int) Option { return func(r *Runner) { r.retryBound = n } }

// WithIterationBound sets the number of tool round-trips allowed per Run.
func WithIterationBound(n int) Option { return func(r *Runner) { r.iterationBound = n } }

// WithTokenBudget trims the history sent to the model. Zero sends everything.
func WithTokenBudget(n int) Option { return func(r *Runner) { r.tokenBudget = n } }

func WithSystemPrompt(s string) Option { return func(r *Runner) { r.system = s } }

func WithModel(m string) Option { return func(r *Runner) { r.model = m } }

func WithMaxTokens(n int) Option { return func(r *Runner) { r.maxTokens = n } }

// WithBackoff replaces the pause schedule between model call attempts.
func WithBackoff(b gax.Backoff) Option { return func(r *Runner) { r.backoff = b } }

func WithEmitter(e *telemetry.Emitter) Option { return func(r *Runner) { r.events = e } }

func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.log = l } }

func WithTokenCounter(c windowing.TokenCounter) Option { return func(r *Runner) { r.counter = c } }

// New returns a Runner calling gen and dispatching tool requests to reg.
// A nil reg answers every tool request with "tool not found".
func New(gen provider.Generator, reg *tools.Registry, opts ...Option) *Runner {
	r := &Runner{
		gen:            gen,
		reg:            reg,
		log:            zerolog.Nop(),
		counter:        windowing.HeuristicCounter{},
		retryBound:     DefaultRetryBound,
		iterationBound: DefaultIterationBound,
		backoff: gax.Backoff{
			Initial:    500 * time.Millisecond,
			Max:        8 * time.Second,
			Multiplier: 2,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retryBound < 1 {
		r.retryBound = 1
	}
	if r.iterationBound < 0 {
		r.iterationBound = 0
	}
	return r
}

// Run advances history until the model answers, the tool bound is hit, or
// model calls keep failing. The last two end in an assistant Turn rather than
// an error. A cancelled ctx returns ctx.Err() and no Turns.
func (r *Runner) Run(ctx context.Context, history []memory.Turn) (Result, error) {
	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = telemetry.NewTurnID()
		ctx = telemetry.WithTurnID(ctx, turnID)
	}
	log := r.log.With().Str("turn_id", turnID).Logger()
	ctx = log.WithContext(ctx)

	var (
		res     Result
		state   = AwaitingModel
		pending *provider.ToolRequest
		rounds  int
	)
	for state != Done {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		switch state {
		case AwaitingModel:
			conv := make([]memory.Turn, 0, len(history)+len(res.Turns))
			conv = append(append(conv, history...), res.Turns...)

			resp, err := r.generate(ctx, conv, &res.Stats)
			if err != nil {
				var mce *ModelCallError
				if !errors.As(err, &mce) {
					return Result{}, err
				}
				log.Error().Err(mce.Err).Int("attempts", mce.Attempts).Msg("model call failed")
				t := memory.AssistantTurn(mce.Error())
				t.IsError = true
				res.Turns = append(res.Turns, t)
				res.Stats.ModelFailed = true
				state = Done
				continue
			}

			switch {
			case resp.ToolRequest == nil:
				res.Turns = append(res.Turns, memory.AssistantTurn(resp.Text))
				state = Done
			case rounds >= r.iterationBound:
				log.Warn().Int("bound", r.iterationBound).Str("tool", resp.ToolRequest.Name).Msg("tool call limit reached")
				res.Turns = append(res.Turns, memory.AssistantTurn(FallbackText))
				res.Stats.LimitReached = true
				state = Done
			default:
				tr := resp.ToolRequest
				res.Turns = append(res.Turns, memory.ToolRequestTurn(resp.Text, tr.ID, tr.Name, tr.Args))
				pending = tr
				state = AwaitingTool
			}

		case AwaitingTool:
			t, err := r.execTool(ctx, pending)
			if err != nil {
				return Result{}, err
			}
			res.Turns = append(res.Turns, t)
			res.Stats.ToolCalls++
			if t.IsError {
				res.Stats.ToolErrors++
			}
			rounds++
			pending = nil
			state = AwaitingModel
		}
	}
	return res, nil
}

func (r *Runner) toolDefs() []tools.ToolDefinition {
	if r.reg == nil {
		return nil
	}
	return r.reg.List()
}
