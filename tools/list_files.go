package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/agentloop/internal/fsops"
)

type ListFilesInput struct {
	Path     string `json:"path,omitempty" jsonschema_description:"Optional relative path to list files from (defaults to current directory)."`
	Page     int    `json:"page,omitempty" jsonschema_description:"1-based page number (default 1)."`
	PageSize int    `json:"page_size,omitempty" jsonschema_description:"Page size (default 200)."`
}

const defaultListFilesPageSize = 200

var ListFilesInputSchema = GenerateSchema[ListFilesInput]()

// ListFilesTool lists one directory level of the sandbox as a JSON array.
func ListFilesTool(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name:        "list_files",
		Description: "List names of files in a directory within the workspace (non-recursive).",
		InputSchema: ListFilesInputSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			return listFiles(sb, input)
		},
	}
}

// listFiles returns a JSON-encoded []string page of the sorted entries.
// An out-of-range page yields "[]".
func listFiles(sb *fsops.Sandbox, input json.RawMessage) (string, error) {
	var in ListFilesInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	page := max(in.Page, 1)
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultListFilesPageSize
	}

	names, err := sb.ListFiles(in.Path)
	if err != nil {
		return "", err
	}

	start := (page - 1) * pageSize
	if start >= len(names) {
		return "[]", nil
	}
	end := min(start+pageSize, len(names))

	b, err := json.Marshal(names[start:end])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
