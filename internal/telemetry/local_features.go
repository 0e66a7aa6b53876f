package telemetry

import (
	"context"

	"github.com/petasbytes/agentloop/internal/metrics"
)

// EmitLocalFeatures records size features of the user's input, never the text itself.
func (e *Emitter) EmitLocalFeatures(ctx context.Context, user string) {
	if !e.Enabled() {
		return
	}
	f := metrics.CountFeatures(user)
	e.Emit(ctx, "local_features", map[string]any{
		"features_version": "1",
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
