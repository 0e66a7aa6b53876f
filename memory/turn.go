package memory

import (
	"encoding/json"
	"time"
)

// Role tags who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Turn is a single persisted message. Turns are treated as immutable once appended.
type Turn struct {
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Session is the full transcript for one conversation id.
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

func now() time.Time { return time.Now().UTC() }

// UserTurn builds a user Turn stamped with the current time.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: text, CreatedAt: now()}
}

// AssistantTurn builds a plain assistant reply.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Content: text, CreatedAt: now()}
}

// ToolRequestTurn builds an assistant Turn asking for tool name with args.
// text is any preamble the model produced alongside the request.
func ToolRequestTurn(text, callID, name string, args json.RawMessage) Turn {
	return Turn{
		Role:       RoleAssistant,
		Content:    text,
		ToolName:   name,
		ToolCallID: callID,
		Args:       args,
		CreatedAt:  now(),
	}
}

// ToolResultTurn builds the tool Turn answering callID.
func ToolResultTurn(callID, name, content string, isErr bool) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    content,
		ToolName:   name,
		ToolCallID: callID,
		IsError:    isErr,
		CreatedAt:  now(),
	}
}

// IsToolRequest reports whether t is an assistant Turn requesting a tool.
func (t Turn) IsToolRequest() bool {
	return t.Role == RoleAssistant && t.ToolName != ""
}

// LastOf returns the newest turn in turns with the given role.
func LastOf(turns []Turn, role Role) (Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == role {
			return turns[i], true
		}
	}
	return Turn{}, false
}
