package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

const DefaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic talks to the Messages API.
type Anthropic struct {
	client anthropic.Client
}

func NewAnthropic(apiKey, baseURL string, httpClient *http.Client) *Anthropic {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(req.Turns),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, err
	}

	var out Response
	var text strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			if out.ToolRequest != nil {
				continue
			}
			id := v.ID
			if id == "" {
				id = newCallID()
			}
			out.ToolRequest = &ToolRequest{ID: id, Name: v.Name, Args: normalizeArgs([]byte(v.JSON.Input.Raw()))}
		}
	}
	out.Text = strings.TrimSpace(text.String())
	out.Usage = Usage{InputTokens: int(msg.Usage.InputTokens), OutputTokens: int(msg.Usage.OutputTokens)}
	if out.Text == "" && out.ToolRequest == nil {
		return Response{}, fmt.Errorf("anthropic: empty response (stop_reason=%s)", msg.StopReason)
	}
	return out, nil
}

func toAnthropicTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: d.Properties(),
				Required:   d.Required(),
			},
		}})
	}
	return out
}

// toAnthropicMessages maps turns to alternating user/assistant messages.
// Tool results travel as user messages; adjacent same-role messages are merged.
func toAnthropicMessages(turns []memory.Turn) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, t := range sendable(turns) {
		switch t.Role {
		case memory.RoleUser:
			if t.Content != "" {
				push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(t.Content))
			}
		case memory.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if t.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Content))
			}
			if t.IsToolRequest() {
				blocks = append(blocks, anthropic.NewToolUseBlock(t.ToolCallID, normalizeArgs(t.Args), t.ToolName))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		case memory.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(t.ToolCallID, t.Content, t.IsError))
		}
	}
	return out
}
