package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: gc}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = clampInt32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiFunctionDeclarations(req.Tools)}}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, toGeminiContents(req.Turns), config)
	if err != nil {
		return Response{}, err
	}
	return parseGeminiResponse(resp)
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && strings.TrimSpace(resp.PromptFeedback.BlockReasonMessage) != "" {
			return Response{}, fmt.Errorf("gemini: no candidates: %s", strings.TrimSpace(resp.PromptFeedback.BlockReasonMessage))
		}
		return Response{}, fmt.Errorf("gemini: no candidates returned")
	}

	var out Response
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil && out.ToolRequest == nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			raw, err := json.Marshal(args)
			if err != nil {
				return Response{}, fmt.Errorf("gemini: encode function args: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = newCallID()
			}
			out.ToolRequest = &ToolRequest{ID: id, Name: part.FunctionCall.Name, Args: raw}
		}
	}
	out.Text = strings.TrimSpace(text.String())
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if out.Text == "" && out.ToolRequest == nil {
		return Response{}, fmt.Errorf("gemini: empty response")
	}
	return out, nil
}

func clampInt32(v int) int32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func toGeminiFunctionDeclarations(defs []tools.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		schema := d.InputSchema
		if len(schema) == 0 {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJsonSchema: schema,
		})
	}
	return out
}

func toGeminiContents(turns []memory.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range sendable(turns) {
		switch t.Role {
		case memory.RoleUser:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))

		case memory.RoleAssistant:
			parts := make([]*genai.Part, 0, 2)
			if t.Content != "" {
				parts = append(parts, genai.NewPartFromText(t.Content))
			}
			if t.IsToolRequest() {
				args := map[string]any{}
				_ = json.Unmarshal(normalizeArgs(t.Args), &args)
				p := genai.NewPartFromFunctionCall(t.ToolName, args)
				p.FunctionCall.ID = t.ToolCallID
				parts = append(parts, p)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}

		case memory.RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(t.Content), &response); err != nil {
				response = map[string]any{"output": t.Content}
			}
			if t.IsError {
				response = map[string]any{"error": t.Content}
			}
			p := genai.NewPartFromFunctionResponse(t.ToolName, response)
			p.FunctionResponse.ID = t.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{p}, genai.RoleUser))
		}
	}
	return contents
}
