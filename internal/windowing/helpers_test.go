package windowing_test

import (
	"encoding/json"

	"github.com/petasbytes/agentloop/internal/windowing"
	"github.com/petasbytes/agentloop/memory"
)

func User(text string) memory.Turn {
	return memory.Turn{Role: memory.RoleUser, Content: text}
}

func Asst(text string) memory.Turn {
	return memory.Turn{Role: memory.RoleAssistant, Content: text}
}

// Req is an assistant tool request with empty args.
func Req(id string) memory.Turn {
	return memory.Turn{Role: memory.RoleAssistant, ToolName: "t", ToolCallID: id, Args: json.RawMessage("{}")}
}

func Res(id, content string) memory.Turn {
	return memory.Turn{Role: memory.RoleTool, ToolName: "t", ToolCallID: id, Content: content}
}

func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
