package tools_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/agentloop/tools"
)

func serperServer(t *testing.T, body string, status int) (*httptest.Server, *http.Request, *[]byte) {
	t.Helper()
	var gotReq http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = *r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotReq, &gotBody
}

func TestSearch_AnswerBoxWins(t *testing.T) {
	srv, req, body := serperServer(t, `{"answerBox":{"answer":"Paris"},"organic":[{"snippet":"ignored"}]}`, 200)
	tool := tools.SearchTool(tools.SearchConfig{APIKey: "secret", URL: srv.URL})

	out, err := tool.Function(context.Background(), json.RawMessage(`{"q":"capital of France"}`))
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "secret", req.Header.Get("X-API-KEY"))
	assert.JSONEq(t, `{"q":"capital of France"}`, string(*body))
}

func TestSearch_FallsBackToKnowledgeGraphAndOrganic(t *testing.T) {
	srv, _, _ := serperServer(t, `{
		"knowledgeGraph":{"title":"Go","type":"Programming language","description":"Go is statically typed."},
		"organic":[{"snippet":"First."},{"snippet":"Second."}]
	}`, 200)
	tool := tools.SearchTool(tools.SearchConfig{APIKey: "k", URL: srv.URL})

	out, err := tool.Function(context.Background(), json.RawMessage(`{"q":"golang"}`))
	require.NoError(t, err)
	assert.Equal(t, "Go: Programming language. Go is statically typed. First. Second.", out)
}

func TestSearch_NoResults(t *testing.T) {
	srv, _, _ := serperServer(t, `{"organic":[]}`, 200)
	tool := tools.SearchTool(tools.SearchConfig{APIKey: "k", URL: srv.URL})

	out, err := tool.Function(context.Background(), json.RawMessage(`{"q":"zzzz"}`))
	require.NoError(t, err)
	assert.Equal(t, "No good Google Search Result was found", out)
}

func TestSearch_HTTPErrorAndEmptyQuery(t *testing.T) {
	srv, _, _ := serperServer(t, `{"message":"Unauthorized"}`, 403)
	tool := tools.SearchTool(tools.SearchConfig{APIKey: "bad", URL: srv.URL})

	_, err := tool.Function(context.Background(), json.RawMessage(`{"q":"x"}`))
	assert.ErrorContains(t, err, "403")

	_, err = tool.Function(context.Background(), json.RawMessage(`{"q":"  "}`))
	assert.Error(t, err)
}
