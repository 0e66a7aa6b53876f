package provider

import (
	"encoding/json"
	"time"

	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

type toolDef = tools.ToolDefinition

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// toolHistory is a finished tool round trip followed by a fresh question.
func toolHistory() []memory.Turn {
	return []memory.Turn{
		{Role: memory.RoleUser, Content: "any alerts in CA?", CreatedAt: ts},
		{Role: memory.RoleAssistant, ToolName: "get_alerts", ToolCallID: "call-1", Args: json.RawMessage(`{"state":"CA"}`), CreatedAt: ts},
		{Role: memory.RoleTool, ToolName: "get_alerts", ToolCallID: "call-1", Content: "No active alerts for this state.", CreatedAt: ts},
		{Role: memory.RoleAssistant, Content: "None right now.", CreatedAt: ts},
		{Role: memory.RoleAssistant, Content: "model call failed: boom", IsError: true, CreatedAt: ts},
		{Role: memory.RoleUser, Content: "and NY?", CreatedAt: ts},
	}
}

func alertsTool() tools.ToolDefinition {
	return tools.AlertsTool(tools.WeatherConfig{BaseURL: "http://127.0.0.1:1"})
}
