// Package windowing trims the history sent to the model to a token budget
// without separating a tool request from its result.
package windowing

import "github.com/petasbytes/agentloop/memory"

// Stats summarizes the result of window preparation.
//
// Fields:
//   - Total: estimated tokens for included groups only.
//   - Budget: the input token budget used.
//   - IncludedGroups: number of groups included.
//   - SkippedGroups: total groups minus IncludedGroups.
//   - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the newest suffix of turns that fits within budget,
// scanning whole groups newest to oldest.
//
// Rules:
//   - budget <= 0 disables windowing: all turns are returned.
//   - If the newest group alone exceeds budget it is still returned on its own
//     and OverBudgetNewest is set; the model always sees the latest input.
//   - The newest user Turn and every Turn after it travel together, so a
//     tool loop in progress never loses the question that started it.
//   - When that group is present the window opens on a user Turn.
//   - A window never starts with a tool turn whose request was dropped.
func PrepareSendWindow(turns []memory.Turn, budget int, c TokenCounter) ([]memory.Turn, Stats) {
	if len(turns) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupTurns(turns)

	if budget <= 0 {
		total := 0
		for _, g := range groups {
			total += c.CountGroup(g, turns)
		}
		return turns, Stats{Total: total, Budget: budget, IncludedGroups: len(groups)}
	}

	total := 0
	included := 0
	startIdx := len(groups)
	costs := make([]int, len(groups))
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], turns)
		if included == 0 && cost > budget {
			return turns[groups[gi].Start:], Stats{
				Total:            cost,
				Budget:           budget,
				IncludedGroups:   1,
				SkippedGroups:    len(groups) - 1,
				OverBudgetNewest: true,
			}
		}
		if total+cost > budget {
			break
		}
		costs[gi] = cost
		total += cost
		included++
		startIdx = gi
	}

	// With a current exchange in the window, open on a user Turn.
	if groups[len(groups)-1].Kind == GroupCurrent {
		for startIdx < len(groups)-1 && turns[groups[startIdx].Start].Role != memory.RoleUser {
			total -= costs[startIdx]
			included--
			startIdx++
		}
	}

	return turns[groups[startIdx].Start:], Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}
