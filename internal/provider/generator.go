// Package provider adapts model vendors to one Generator capability.
//
// Each variant converts memory.Turn history into its wire format and maps the
// reply back to at most one text answer or one tool request. SDK retries are
// disabled; the runner owns the retry policy.
package provider

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

// Generator produces the next assistant step for a conversation.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

type Request struct {
	System    string
	Turns     []memory.Turn
	Tools     []tools.ToolDefinition
	Model     string
	MaxTokens int
}

// ToolRequest is a single tool call asked for by the model.
type ToolRequest struct {
	ID   string
	Name string
	Args json.RawMessage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response carries either Text, a ToolRequest, or both when the model
// prefaced its tool call with prose.
type Response struct {
	Text        string
	ToolRequest *ToolRequest
	Usage       Usage
}

func newCallID() string {
	return "call_" + uuid.NewString()
}

// normalizeArgs returns a JSON object for empty or null arguments.
func normalizeArgs(raw []byte) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// sendable drops assistant turns that only record a failed model call.
func sendable(turns []memory.Turn) []memory.Turn {
	out := make([]memory.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == memory.RoleAssistant && t.IsError {
			continue
		}
		out = append(out, t)
	}
	return out
}
