package tools

import "fmt"

// DuplicateToolError is returned by Register for a name that is already taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// ToolInvocationError is a failure captured into the tool turn so the model can react.
type ToolInvocationError struct {
	Name string
	// NotFound is set when no tool with Name is registered.
	NotFound bool
	Err      error
}

func (e *ToolInvocationError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("tool not found: %s", e.Name)
	}
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }
