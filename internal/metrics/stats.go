package metrics

import (
	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/memory"
)

// SessionStats summarizes a transcript by role and size.
type SessionStats struct {
	Turns        int
	UserTurns    int
	Assistant    int
	ToolRequests int
	ToolResults  int
	ToolErrors   int
	ModelErrors  int
	ToolsUsed    map[string]int
	UserText     Features
	ReplyText    Features
}

// Summarize walks turns once. Tool payloads are only counted, never measured.
func Summarize(turns []memory.Turn) SessionStats {
	st := SessionStats{Turns: len(turns), ToolsUsed: map[string]int{}}
	for _, t := range turns {
		switch t.Role {
		case memory.RoleUser:
			st.UserTurns++
			st.UserText = st.UserText.Add(CountFeatures(t.Content))
		case memory.RoleAssistant:
			st.Assistant++
			switch {
			case t.IsToolRequest():
				st.ToolRequests++
				st.ToolsUsed[t.ToolName]++
			case t.IsError:
				st.ModelErrors++
			default:
				st.ReplyText = st.ReplyText.Add(CountFeatures(t.Content))
			}
		case memory.RoleTool:
			st.ToolResults++
			if t.IsError {
				st.ToolErrors++
			}
		}
	}
	return st
}

// MarshalZerologObject lets stats be attached with zerolog's Object.
func (s SessionStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("turns", s.Turns).
		Int("user_turns", s.UserTurns).
		Int("assistant_turns", s.Assistant).
		Int("tool_requests", s.ToolRequests).
		Int("tool_results", s.ToolResults).
		Int("tool_errors", s.ToolErrors).
		Int("model_errors", s.ModelErrors).
		Int("user_words", s.UserText.Words).
		Int("reply_words", s.ReplyText.Words)
	if len(s.ToolsUsed) > 0 {
		d := zerolog.Dict()
		for name, n := range s.ToolsUsed {
			d.Int(name, n)
		}
		e.Dict("tools_used", d)
	}
}
