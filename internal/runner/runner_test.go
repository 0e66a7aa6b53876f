package runner_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/agentloop/internal/runner"
	"github.com/petasbytes/agentloop/memory"
)

func TestRun_DirectAnswer(t *testing.T) {
	gen := &scripted{steps: []step{answer("hello there")}}
	r := runner.New(gen, echoRegistry(t), runner.WithModel("m1"), runner.WithSystemPrompt("be brief"), runner.WithMaxTokens(64))

	history := []memory.Turn{memory.UserTurn("hi")}
	res, err := r.Run(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, res.Turns, 1)
	assert.Equal(t, memory.RoleAssistant, res.Turns[0].Role)
	assert.Equal(t, "hello there", res.Reply())
	assert.Equal(t, 1, res.Stats.ModelCalls)
	assert.Equal(t, 10, res.Stats.Usage.InputTokens)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "m1", req.Model)
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, 64, req.MaxTokens)
	assert.Equal(t, history, req.Turns)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "echo", req.Tools[0].Name)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	gen := &scripted{steps: []step{
		toolCall("c1", "echo", `{"text":"ping"}`),
		answer("done"),
	}}
	r := runner.New(gen, echoRegistry(t))

	history := []memory.Turn{memory.UserTurn("echo ping")}
	res, err := r.Run(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, res.Turns, 3)
	req, result, reply := res.Turns[0], res.Turns[1], res.Turns[2]

	assert.True(t, req.IsToolRequest())
	assert.Equal(t, "echo", req.ToolName)
	assert.Equal(t, "c1", req.ToolCallID)
	assert.JSONEq(t, `{"text":"ping"}`, string(req.Args))

	assert.Equal(t, memory.RoleTool, result.Role)
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, "echo: ping", result.Content)
	assert.False(t, result.IsError)

	assert.Equal(t, "done", reply.Content)
	assert.Equal(t, 1, res.Stats.ToolCalls)

	// The second model call sees the request and its result, in order.
	require.Len(t, gen.requests, 2)
	second := gen.requests[1].Turns
	require.Len(t, second, 3)
	assert.Equal(t, history[0].Content, second[0].Content)
	assert.True(t, second[1].IsToolRequest())
	assert.Equal(t, memory.RoleTool, second[2].Role)

	assert.Len(t, history, 1, "caller history must not be modified")
}

func TestRun_UnknownToolCapturedAndLoopContinues(t *testing.T) {
	gen := &scripted{steps: []step{
		toolCall("c1", "search", `{"q":"X"}`),
		answer("I could not search."),
	}}
	r := runner.New(gen, echoRegistry(t))

	res, err := r.Run(context.Background(), []memory.Turn{memory.UserTurn("look up X")})
	require.NoError(t, err)

	require.Len(t, res.Turns, 3)
	tool := res.Turns[1]
	assert.Equal(t, memory.RoleTool, tool.Role)
	assert.Equal(t, "tool not found: search", tool.Content)
	assert.True(t, tool.IsError)
	assert.Equal(t, "I could not search.", res.Reply())
	assert.Equal(t, 1, res.Stats.ToolErrors)
	assert.Equal(t, 2, res.Stats.ModelCalls)
}

func TestRun_NilRegistryAnswersNotFound(t *testing.T) {
	gen := &scripted{steps: []step{toolCall("c1", "echo", `{}`), answer("ok")}}
	res, err := runner.New(gen, nil).Run(context.Background(), []memory.Turn{memory.UserTurn("x")})
	require.NoError(t, err)
	assert.Equal(t, "tool not found: echo", res.Turns[1].Content)
	assert.Nil(t, gen.requests[0].Tools)
}

func TestRun_InvalidArgumentsCaptured(t *testing.T) {
	gen := &scripted{steps: []step{toolCall("c1", "echo", `{"text":7}`), answer("ok")}}
	res, err := runner.New(gen, echoRegistry(t)).Run(context.Background(), []memory.Turn{memory.UserTurn("x")})
	require.NoError(t, err)

	tool := res.Turns[1]
	assert.True(t, tool.IsError)
	assert.Contains(t, tool.Content, "tool echo failed: invalid arguments")
}

func TestRun_BoundedToolLoop(t *testing.T) {
	for _, bound := range []int{0, 1, 3, 8} {
		gen := &scripted{steps: []step{toolCall("c", "echo", `{"text":"again"}`)}}
		r := runner.New(gen, echoRegistry(t), runner.WithIterationBound(bound))

		res, err := r.Run(context.Background(), []memory.Turn{memory.UserTurn("loop")})
		require.NoError(t, err, "bound %d", bound)

		assert.Len(t, res.Turns, 2*bound+1, "bound %d", bound)
		assert.Equal(t, bound+1, res.Stats.ModelCalls, "bound %d", bound)
		assert.Equal(t, bound, res.Stats.ToolCalls, "bound %d", bound)
		assert.True(t, res.Stats.LimitReached)

		last := res.Turns[len(res.Turns)-1]
		assert.Equal(t, memory.RoleAssistant, last.Role)
		assert.False(t, last.IsToolRequest(), "no dangling tool request at the end")
		assert.Equal(t, runner.FallbackText, last.Content)
	}
}

func TestRun_DefaultIterationBoundIsEight(t *testing.T) {
	gen := &scripted{steps: []step{toolCall("c", "echo", `{"text":"x"}`)}}
	res, err := runner.New(gen, echoRegistry(t)).Run(context.Background(), []memory.Turn{memory.UserTurn("go")})
	require.NoError(t, err)
	assert.Equal(t, runner.DefaultIterationBound, res.Stats.ToolCalls)
	assert.Equal(t, 8, runner.DefaultIterationBound)
}

func TestRun_RetryThenSuccess(t *testing.T) {
	gen := &scripted{steps: []step{failure("overloaded"), failure("overloaded"), answer("finally")}}
	r := runner.New(gen, nil, fastBackoff)

	res, err := r.Run(context.Background(), []memory.Turn{memory.UserTurn("hi")})
	require.NoError(t, err)
	require.Len(t, res.Turns, 1)
	assert.Equal(t, "finally", res.Reply())
	assert.False(t, res.Turns[0].IsError)
	assert.Equal(t, 3, res.Stats.ModelCalls)
	assert.Equal(t, 2, res.Stats.Retries)
}

func TestRun_RetryExhaustedBecomesErrorTurn(t *testing.T) {
	gen := &scripted{steps: []step{failure("boom")}}
	r := runner.New(gen, nil, fastBackoff, runner.WithRetryBound(3))

	res, err := r.Run(context.Background(), []memory.Turn{memory.UserTurn("hi")})
	require.NoError(t, err)

	require.Len(t, res.Turns, 1)
	turn := res.Turns[0]
	assert.Equal(t, memory.RoleAssistant, turn.Role)
	assert.True(t, turn.IsError)
	assert.Equal(t, "model call failed: boom", turn.Content)
	assert.Equal(t, 3, res.Stats.ModelCalls)
	assert.True(t, res.Stats.ModelFailed)
}

func TestRun_RetryBoundBelowOneMeansSingleAttempt(t *testing.T) {
	gen := &scripted{steps: []step{failure("boom")}}
	res, err := runner.New(gen, nil, runner.WithRetryBound(0)).Run(context.Background(), []memory.Turn{memory.UserTurn("hi")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.ModelCalls)
	assert.Zero(t, res.Stats.Retries)
}

func TestRun_CancelledDuringModelCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scripted{steps: []step{{block: true}}}
	r := runner.New(gen, nil, fastBackoff)

	done := make(chan struct{})
	var (
		res runner.Result
		err error
	)
	go func() {
		defer close(done)
		res, err = r.Run(ctx, []memory.Turn{memory.UserTurn("hi")})
	}()
	cancel()
	<-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Turns)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scripted{steps: []step{answer("never")}}

	_, err := runner.New(gen, nil).Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.requests)
}

func TestRun_CancelledDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := echoRegistry(t)
	require.NoError(t, reg.Register(cancellingTool(cancel)))

	gen := &scripted{steps: []step{toolCall("c1", "hang", `{}`), answer("unreachable")}}
	res, err := runner.New(gen, reg).Run(ctx, []memory.Turn{memory.UserTurn("hi")})

	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Empty(t, res.Turns)
	assert.Len(t, gen.requests, 1)
}

func TestRun_TokenBudgetTrimsOldTurns(t *testing.T) {
	gen := &scripted{steps: []step{answer("ok")}}
	r := runner.New(gen, nil, runner.WithTokenBudget(20))

	history := []memory.Turn{
		memory.UserTurn("an old message that is fairly long and will be dropped"),
		memory.AssistantTurn("an old reply that is also long enough to be dropped"),
		memory.UserTurn("newest"),
	}
	_, err := r.Run(context.Background(), history)
	require.NoError(t, err)

	sent := gen.requests[0].Turns
	require.Len(t, sent, 1)
	assert.Equal(t, "newest", sent[0].Content)
}

func TestRun_TokenBudgetKeepsQuestionDuringToolLoop(t *testing.T) {
	args := `{"text":"` + strings.Repeat("x", 60) + `"}`
	gen := &scripted{steps: []step{toolCall("c1", "echo", args), answer("done")}}
	r := runner.New(gen, echoRegistry(t), runner.WithTokenBudget(100))

	history := []memory.Turn{
		memory.UserTurn("an earlier question that the budget can no longer afford"),
		memory.AssistantTurn("an earlier answer"),
		memory.UserTurn("repeat the x's"),
	}
	res, err := r.Run(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Reply())

	require.Len(t, gen.requests, 2)
	sent := gen.requests[1].Turns
	require.Len(t, sent, 3)
	assert.Equal(t, memory.RoleUser, sent[0].Role)
	assert.Equal(t, "repeat the x's", sent[0].Content)
	assert.True(t, sent[1].IsToolRequest())
	assert.Equal(t, memory.RoleTool, sent[2].Role)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting_model", runner.AwaitingModel.String())
	assert.Equal(t, "awaiting_tool", runner.AwaitingTool.String())
	assert.Equal(t, "done", runner.Done.String())
	assert.Equal(t, "unknown", runner.State(42).String())
}

func TestModelCallError_Unwrap(t *testing.T) {
	base := errors.New("rate limited")
	err := &runner.ModelCallError{Provider: "p", Attempts: 3, Err: base}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "model call failed: rate limited", err.Error())
}
