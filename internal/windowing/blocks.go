package windowing

import "github.com/petasbytes/agentloop/memory"

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
	// GroupCurrent is the newest user Turn and everything after it: the
	// question being answered and the tool loop it started.
	GroupCurrent
)

// Group describes a contiguous span of turns [Start, End) in the original slice.
type Group struct {
	Kind  GroupKind
	Start int // inclusive
	End   int // exclusive
}

// GroupTurns splits turns into units that are never separated by windowing.
// Turns from the newest user Turn on form a single GroupCurrent. Before it, a
// pair is an assistant tool request directly followed by the tool turn
// carrying the same call id; everything else, including an orphaned request
// or result, is a singleton.
func GroupTurns(turns []memory.Turn) []Group {
	groups := make([]Group, 0, len(turns))
	end := lastUser(turns)
	if end < 0 {
		end = len(turns)
	}
	for i := 0; i < end; {
		if isPair(turns, i) {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
			i += 2
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	if end < len(turns) {
		groups = append(groups, Group{Kind: GroupCurrent, Start: end, End: len(turns)})
	}
	return groups
}

// lastUser returns the index of the newest user Turn, or -1.
func lastUser(turns []memory.Turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == memory.RoleUser {
			return i
		}
	}
	return -1
}

func isPair(turns []memory.Turn, i int) bool {
	if i+1 >= len(turns) {
		return false
	}
	req, res := turns[i], turns[i+1]
	return req.IsToolRequest() &&
		res.Role == memory.RoleTool &&
		res.ToolCallID == req.ToolCallID
}
