package runner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/provider"
	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

// execTool runs req and wraps the outcome in the answering tool Turn.
// Tool failures become the Turn's content; only cancellation is returned.
func (r *Runner) execTool(ctx context.Context, req *provider.ToolRequest) (memory.Turn, error) {
	start := time.Now()
	emit := func(outSize int, errKind string) {
		fields := map[string]any{
			"tool_name":   req.Name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(req.Args),
			"output_size": outSize,
		}
		if errKind != "" {
			fields["error"] = errKind
		} else {
			fields["error"] = nil
		}
		r.events.Emit(ctx, "tool_exec", fields)
	}

	var (
		out string
		err error
	)
	if r.reg == nil {
		err = &tools.ToolInvocationError{Name: req.Name, NotFound: true}
	} else {
		out, err = r.reg.Invoke(ctx, req.Name, req.Args)
	}

	if err != nil {
		var tie *tools.ToolInvocationError
		if !errors.As(err, &tie) {
			emit(0, "cancelled")
			return memory.Turn{}, err
		}
		// Generic kinds only; the detailed message goes to the model, not the event log.
		kind := "tool error"
		if tie.NotFound {
			kind = "tool not found"
		}
		emit(0, kind)
		zerolog.Ctx(ctx).Debug().Str("tool", req.Name).Str("kind", kind).Msg("tool call failed")
		return memory.ToolResultTurn(req.ID, req.Name, tie.Error(), true), nil
	}

	emit(len(out), "")
	return memory.ToolResultTurn(req.ID, req.Name, out, false), nil
}
