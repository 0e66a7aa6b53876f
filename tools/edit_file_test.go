package tools_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/agentloop/tools"
)

func callEdit(t *testing.T, in tools.EditFileInput) (string, error) {
	t.Helper()
	b, err := json.Marshal(in)
	require.NoError(t, err)
	return tools.EditFileTool(sandbox).Function(context.Background(), b)
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(sharedDir, rel(t, name)))
	require.NoError(t, err)
	return string(data)
}

func TestEditFile_CreateNew(t *testing.T) {
	out, err := callEdit(t, tools.EditFileInput{Path: rel(t, "new.txt"), NewStr: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, "hello", readFixture(t, "new.txt"))
}

func TestEditFile_ReplaceOK(t *testing.T) {
	writeFixture(t, "a.txt", "abc abc")

	out, err := callEdit(t, tools.EditFileInput{Path: rel(t, "a.txt"), OldStr: "abc", NewStr: "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, "OK", out)
	assert.Equal(t, "XYZ XYZ", readFixture(t, "a.txt"))
}

func TestEditFile_OldNotFound_Error(t *testing.T) {
	writeFixture(t, "a.txt", "abc")

	_, err := callEdit(t, tools.EditFileInput{Path: rel(t, "a.txt"), OldStr: "nope", NewStr: "x"})
	assert.ErrorContains(t, err, "old_str not found")
}

func TestEditFile_ExistingRequiresOldStr(t *testing.T) {
	writeFixture(t, "a.txt", "abc")

	_, err := callEdit(t, tools.EditFileInput{Path: rel(t, "a.txt"), NewStr: "x"})
	assert.Error(t, err)
	assert.Equal(t, "abc", readFixture(t, "a.txt"))
}

func TestEditFile_InvalidParams_Error(t *testing.T) {
	_, err := callEdit(t, tools.EditFileInput{Path: "", OldStr: "a", NewStr: "b"})
	assert.Error(t, err, "empty path")

	_, err = callEdit(t, tools.EditFileInput{Path: "some.txt", OldStr: "x", NewStr: "x"})
	assert.Error(t, err, "old_str equal to new_str")
}

func TestEditFile_DenyWrites(t *testing.T) {
	require.NoError(t, os.MkdirAll(filepath.Join(sharedDir, ".git"), 0o755))

	for _, p := range []string{".git/HEAD", ".agent/sessions/1.jsonl", "go.mod"} {
		_, err := callEdit(t, tools.EditFileInput{Path: p, NewStr: "x"})
		assert.ErrorContains(t, err, "ERR_DENIED_WRITE", p)
	}
}

func TestEditFile_CreateThroughEscapingSymlinkRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test skipped on Windows")
	}
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sharedDir, rel(t)), 0o755))
	if err := os.Symlink(outside, filepath.Join(sharedDir, rel(t, "out"))); err != nil {
		t.Skipf("symlink not allowed on this FS: %v", err)
	}

	_, err := callEdit(t, tools.EditFileInput{Path: rel(t, "out", "newdir", "file.txt"), NewStr: "escaped"})
	assert.ErrorContains(t, err, "ERR_PATH_OUTSIDE_SANDBOX")

	_, statErr := os.Stat(filepath.Join(outside, "newdir"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be created outside the sandbox")
}
