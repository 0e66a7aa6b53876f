package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.2:1b"
	DefaultOllamaURL   = "http://localhost:11434/v1/"
)

// OpenAI talks to the Chat Completions API or any compatible endpoint.
type OpenAI struct {
	name         string
	defaultModel string
	client       openai.Client
}

func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	return newChatCompletions("openai", DefaultOpenAIModel, apiKey, baseURL, httpClient)
}

// NewOllama targets a local Ollama server through its OpenAI-compatible API.
func NewOllama(baseURL string, httpClient *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return newChatCompletions("ollama", DefaultOllamaModel, "not-needed", baseURL, httpClient)
}

func newChatCompletions(name, model, apiKey, baseURL string, httpClient *http.Client) *OpenAI {
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
	return &OpenAI{name: name, defaultModel: model, client: openai.NewClient(opts...)}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = o.defaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.System, req.Turns),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, err
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("%s: no response choices returned", o.name)
	}

	msg := completion.Choices[0].Message
	out := Response{
		Text: strings.TrimSpace(msg.Content),
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		id := tc.ID
		if id == "" {
			id = newCallID()
		}
		out.ToolRequest = &ToolRequest{ID: id, Name: tc.Function.Name, Args: normalizeArgs([]byte(tc.Function.Arguments))}
	}
	if out.Text == "" && out.ToolRequest == nil {
		return Response{}, fmt.Errorf("%s: empty response (finish_reason=%s)", o.name, completion.Choices[0].FinishReason)
	}
	return out, nil
}

func toOpenAITools(defs []tools.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.InputSchema),
			},
		})
	}
	return out
}

func toOpenAIMessages(system string, turns []memory.Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, t := range sendable(turns) {
		switch t.Role {
		case memory.RoleUser:
			out = append(out, openai.UserMessage(t.Content))
		case memory.RoleAssistant:
			if !t.IsToolRequest() {
				out = append(out, openai.AssistantMessage(t.Content))
				continue
			}
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: t.Content,
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID:   t.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      t.ToolName,
						Arguments: string(normalizeArgs(t.Args)),
					},
				}},
			}
			out = append(out, assistant.ToParam())
		case memory.RoleTool:
			out = append(out, openai.ToolMessage(t.Content, t.ToolCallID))
		}
	}
	return out
}
