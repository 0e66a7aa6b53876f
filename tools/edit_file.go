package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/petasbytes/agentloop/internal/fsops"
	"github.com/petasbytes/agentloop/internal/safety"
)

type EditFileInput struct {
	Path   string `json:"path" jsonschema_description:"Target relative file path"`
	OldStr string `json:"old_str" jsonschema_description:"Exact text to replace; must be present when editing an existing file. Empty to create a new file."`
	NewStr string `json:"new_str" jsonschema_description:"New text to write or replace old_str with"`
}

var EditFileInputSchema = GenerateSchema[EditFileInput]()

// EditFileTool creates or edits files under the sandbox write root.
func EditFileTool(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name: "edit_file",
		Description: `Create or modify a text file addressed by a relative path within the workspace.

When old_str is empty and the file doesn't exist, a new file is created.

When editing an existing file, all occurrences of old_str are replaced with new_str; old_str and new_str must be different.
`,
		InputSchema: EditFileInputSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			return editFile(sb, input)
		},
	}
}

func editFile(sb *fsops.Sandbox, input json.RawMessage) (string, error) {
	var in EditFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	if in.Path == "" || in.OldStr == in.NewStr {
		return "", fmt.Errorf("invalid edit parameters")
	}

	oldContent, readErr := sb.ReadFile(in.Path)
	if readErr != nil {
		// Policy rejections fall through to the write check so the model sees
		// the write-side verdict.
		var te safety.ToolError
		creatable := errors.Is(readErr, os.ErrNotExist) || (errors.As(readErr, &te) && te.Code != safety.CodeNotAFile)
		if in.OldStr == "" && creatable {
			if err := sb.WriteFile(in.Path, in.NewStr); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully created file %s", in.Path), nil
		}
		return "", readErr
	}

	if in.OldStr == "" {
		return "", fmt.Errorf("old_str must be provided when editing an existing file")
	}
	newContent := strings.ReplaceAll(oldContent, in.OldStr, in.NewStr)
	if newContent == oldContent {
		return "", fmt.Errorf("old_str not found in file")
	}

	if err := sb.WriteFile(in.Path, newContent); err != nil {
		return "", err
	}
	return "OK", nil
}
