package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/agentloop/internal/provider"
	"github.com/petasbytes/agentloop/internal/runner"
	"github.com/petasbytes/agentloop/memory"
	"github.com/petasbytes/agentloop/tools"
)

// step is one scripted Generate outcome. block makes the call wait for ctx.
type step struct {
	resp  provider.Response
	err   error
	block bool
}

// scripted replays steps in order and repeats the last one when exhausted.
type scripted struct {
	steps    []step
	requests []provider.Request
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	cp := req
	cp.Turns = append([]memory.Turn(nil), req.Turns...)
	s.requests = append(s.requests, cp)

	i := len(s.requests) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	st := s.steps[i]
	if st.block {
		<-ctx.Done()
		return provider.Response{}, ctx.Err()
	}
	return st.resp, st.err
}

func answer(text string) step {
	return step{resp: provider.Response{Text: text, Usage: provider.Usage{InputTokens: 10, OutputTokens: 2}}}
}

func toolCall(id, name, args string) step {
	return step{resp: provider.Response{ToolRequest: &provider.ToolRequest{ID: id, Name: name, Args: json.RawMessage(args)}}}
}

func failure(msg string) step { return step{err: errors.New(msg)} }

var fastBackoff = runner.WithBackoff(gax.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1})

type echoInput struct {
	Text string `json:"text" jsonschema_description:"Text to echo back."`
}

// echoRegistry has a single "echo" tool that returns its text argument.
func echoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.ToolDefinition{
		Name:        "echo",
		Description: "Echo the given text.",
		InputSchema: tools.GenerateSchema[echoInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in echoInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return "echo: " + in.Text, nil
		},
	}))
	return reg
}
