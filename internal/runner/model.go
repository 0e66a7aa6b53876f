package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/provider"
	"github.com/petasbytes/agentloop/internal/windowing"
	"github.com/petasbytes/agentloop/memory"
)

// ModelCallError is returned once every attempt at a model call has failed.
type ModelCallError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// generate windows conv and calls the model, retrying with backoff.
// A done ctx is returned as ctx.Err(), never as a ModelCallError.
func (r *Runner) generate(ctx context.Context, conv []memory.Turn, st *Stats) (provider.Response, error) {
	window, ws := windowing.PrepareSendWindow(conv, r.tokenBudget, r.counter)
	r.events.Emit(ctx, "window_prepared", map[string]any{
		"model":              r.model,
		"budget":             ws.Budget,
		"total_estimated":    ws.Total,
		"included_groups":    ws.IncludedGroups,
		"skipped_groups":     ws.SkippedGroups,
		"over_budget_newest": ws.OverBudgetNewest,
	})
	if ws.OverBudgetNewest {
		zerolog.Ctx(ctx).Warn().Int("budget", ws.Budget).Msg("newest message group exceeds token budget; sending it alone")
	}

	req := provider.Request{
		System:    r.system,
		Turns:     window,
		Tools:     r.toolDefs(),
		Model:     r.model,
		MaxTokens: r.maxTokens,
	}

	bo := r.backoff
	var lastErr error
	for attempt := 1; attempt <= r.retryBound; attempt++ {
		start := time.Now()
		resp, err := r.gen.Generate(ctx, req)
		st.ModelCalls++

		fields := map[string]any{
			"provider":    r.gen.Name(),
			"model":       r.model,
			"attempt":     attempt,
			"duration_ms": time.Since(start).Milliseconds(),
			"turns_sent":  len(window),
		}
		if err == nil {
			fields["input_tokens"] = resp.Usage.InputTokens
			fields["output_tokens"] = resp.Usage.OutputTokens
			fields["tool_request"] = resp.ToolRequest != nil
			r.events.Emit(ctx, "model_call", fields)

			st.Usage.InputTokens += resp.Usage.InputTokens
			st.Usage.OutputTokens += resp.Usage.OutputTokens
			return resp, nil
		}
		fields["error"] = "model error"
		r.events.Emit(ctx, "model_call", fields)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.Response{}, ctxErr
		}
		lastErr = err
		if attempt == r.retryBound {
			break
		}

		pause := bo.Pause()
		zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Dur("pause", pause).Msg("retrying model call")
		st.Retries++
		if err := gax.Sleep(ctx, pause); err != nil {
			return provider.Response{}, ctx.Err()
		}
	}
	return provider.Response{}, &ModelCallError{Provider: r.gen.Name(), Attempts: r.retryBound, Err: lastErr}
}
