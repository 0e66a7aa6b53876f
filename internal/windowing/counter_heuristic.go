package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/agentloop/memory"
)

// TokenCounter estimates input-token cost for turns or groups.
type TokenCounter interface {
	CountTurn(t memory.Turn) int
	CountGroup(g Group, all []memory.Turn) int
}

// HeuristicCounter is the default deterministic estimator: runes of the
// content, tool name and arguments plus a fixed per-turn overhead.
type HeuristicCounter struct{}

// Fixed per-turn overhead; changing this requires updating the guard test.
const turnOverhead = 4

func (HeuristicCounter) CountTurn(t memory.Turn) int {
	n := utf8.RuneCountInString(t.Content) + turnOverhead
	if t.IsToolRequest() {
		n += utf8.RuneCountInString(t.ToolName) + utf8.RuneCount(t.Args)
	}
	return n
}

func (h HeuristicCounter) CountGroup(g Group, all []memory.Turn) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountTurn(all[i])
	}
	return total
}
