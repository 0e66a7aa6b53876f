package windowing_test

import (
	"encoding/json"
	"testing"

	"github.com/petasbytes/agentloop/internal/windowing"
	"github.com/petasbytes/agentloop/memory"
)

func TestHeuristicCounter_CountsRunes(t *testing.T) {
	h := windowing.HeuristicCounter{}
	overhead := h.CountTurn(User(""))
	if overhead != 4 {
		t.Fatalf("overhead guard: got %d want 4", overhead)
	}
	// "héllo" = 5 runes, "👍" = 1 rune
	if got := h.CountTurn(User("héllo")); got != 5+overhead {
		t.Fatalf("got %d", got)
	}
	if got := h.CountTurn(Asst("👍")); got != 1+overhead {
		t.Fatalf("got %d", got)
	}
}

func TestHeuristicCounter_ToolRequestIncludesNameAndArgs(t *testing.T) {
	h := windowing.HeuristicCounter{}
	req := memory.Turn{Role: memory.RoleAssistant, ToolName: "search", ToolCallID: "c", Args: json.RawMessage(`{"q":"go"}`)}
	// 6 (search) + 10 ({"q":"go"}) + 4
	if got := h.CountTurn(req); got != 20 {
		t.Fatalf("got %d want 20", got)
	}
	// tool results count only content
	if got := h.CountTurn(Res("c", "abc")); got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}

func TestHeuristicCounter_CountGroup(t *testing.T) {
	h := windowing.HeuristicCounter{}
	turns := []memory.Turn{Req("c"), Res("c", "xx")}
	g := windowing.GroupTurns(turns)[0]
	want := h.CountTurn(turns[0]) + h.CountTurn(turns[1])
	if got := h.CountGroup(g, turns); got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}
