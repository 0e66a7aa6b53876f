package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/petasbytes/agentloop/internal/fsops"
)

type ReadFileInput struct {
	Path   string `json:"path" jsonschema_description:"Relative file path."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"Line offset (0-based) to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return from offset (default 200)."`
}

const defaultReadFileLimit = 200 // fallback page size when limit <= 0
const truncationSentinel = "-- truncated; use offset/limit to fetch more --\n"
const maxLineRunes = 2000     // per-line clamp
const overallRuneCap = 12_000 // overall cap after join

var ReadFileInputSchema = GenerateSchema[ReadFileInput]()

// ReadFileTool reads files from the sandbox read root.
func ReadFileTool(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name:        "read_file",
		Description: "Read the contents of a file addressed by a relative file path within the workspace. Directory paths and unsafe paths are rejected.",
		InputSchema: ReadFileInputSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			return readFile(sb, input)
		},
	}
}

func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// readFile pages the file by lines:
//   - offset: 0-based starting line (negatives clamped to 0)
//   - limit: number of lines to return (<= 0 means 200)
//
// Any truncation appends truncationSentinel so the model knows to page.
func readFile(sb *fsops.Sandbox, input json.RawMessage) (string, error) {
	var in ReadFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}

	content, err := sb.ReadFile(in.Path)
	if err != nil {
		return "", err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadFileLimit
	}
	offset := max(in.Offset, 0)

	lines := strings.Split(content, "\n")
	offset = min(offset, len(lines))
	end := min(offset+limit, len(lines))

	truncated := end < len(lines)
	for i := offset; i < end; i++ {
		if clamped, did := clampRunes(lines[i], maxLineRunes); did {
			lines[i] = clamped
			truncated = true
		}
	}

	out := strings.Join(lines[offset:end], "\n")
	if clamped, did := clampRunes(out, overallRuneCap); did {
		out = clamped
		truncated = true
	}

	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncationSentinel
	}
	return out, nil
}
