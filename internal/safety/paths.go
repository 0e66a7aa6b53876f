// Package safety validates model-supplied paths against a sandbox root.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error codes carried by ToolError.
const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
	CodeNotAFile       = "ERR_NOT_A_FILE"
)

// ToolError is a machine-readable error body surfaced to the model as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string so tool turns stay small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Policy lists the sandbox-relative locations the file tools may not touch.
type Policy struct {
	// DenyReadDirs blocks reads at or under these top-level directories.
	DenyReadDirs []string
	// DenyWriteDirs blocks writes at or under these top-level directories.
	DenyWriteDirs []string
	// DenyWriteNames blocks writes to files with these base names at any depth.
	DenyWriteNames []string
}

// DefaultPolicy keeps the agent away from VCS metadata, its own state and module files.
func DefaultPolicy() Policy {
	return Policy{
		DenyReadDirs:   []string{".git", ".agent"},
		DenyWriteDirs:  []string{".git", ".agent"},
		DenyWriteNames: []string{"go.mod", "go.sum"},
	}
}

// ResolveRoot returns the absolute, symlink-resolved form of root.
// An empty root means the working directory. A root that does not exist yet
// is returned as an absolute path.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", root, err)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// resolve joins relPath onto absRoot and returns the resolved candidate with
// its slash-separated path relative to the root.
func resolve(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	if r, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = r
	}
	candidate, err := resolveExisting(filepath.Join(absRoot, filepath.Clean(relPath)))
	if err != nil {
		return "", "", err
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}
	return candidate, filepath.ToSlash(rel), nil
}

// resolveExisting resolves symlinks in the deepest existing ancestor of p and
// rejoins the missing tail, so a link anywhere above a not-yet-created path is
// followed before the boundary check. A link whose target is missing is
// rejected: creating through it would land wherever it points.
func resolveExisting(p string) (string, error) {
	var tail []string
	cur := p
	for {
		if r, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				r = filepath.Join(r, tail[i])
			}
			return r, nil
		}
		if fi, err := os.Lstat(cur); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			return "", ToolError{Code: CodeOutsideSandbox, Message: "path goes through a dangling symlink"}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

func underAny(rel string, dirs []string) bool {
	for _, d := range dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// ValidateReadPath resolves relPath for reading under absRoot.
func (p Policy) ValidateReadPath(absRoot, relPath string) (string, error) {
	abs, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underAny(rel, p.DenyReadDirs) {
		return "", ToolError{Code: CodeDeniedRead, Message: fmt.Sprintf("reads under %s are not allowed", strings.Join(p.DenyReadDirs, ", "))}
	}
	return abs, nil
}

// ValidateWritePath resolves relPath for writing under absRoot.
func (p Policy) ValidateWritePath(absRoot, relPath string) (string, error) {
	abs, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", ToolError{Code: CodeNotAFile, Message: "cannot write to the sandbox root"}
	}
	if underAny(rel, p.DenyWriteDirs) {
		return "", ToolError{Code: CodeDeniedWrite, Message: fmt.Sprintf("writes under %s are not allowed", strings.Join(p.DenyWriteDirs, ", "))}
	}
	base := filepath.Base(abs)
	for _, n := range p.DenyWriteNames {
		if base == n {
			return "", ToolError{Code: CodeDeniedWrite, Message: fmt.Sprintf("writes to %s are not allowed", n)}
		}
	}
	return abs, nil
}

// ValidateReadPath applies DefaultPolicy.
func ValidateReadPath(absRoot, relPath string) (string, error) {
	return DefaultPolicy().ValidateReadPath(absRoot, relPath)
}

// ValidateWritePath applies DefaultPolicy.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	return DefaultPolicy().ValidateWritePath(absRoot, relPath)
}
