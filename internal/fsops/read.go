package fsops

import (
	"os"

	"github.com/petasbytes/agentloop/internal/safety"
)

// ReadFile reads a file addressed by a path relative to the read root.
// Policy violations come back as safety.ToolError; I/O failures as plain errors.
func (s *Sandbox) ReadFile(relPath string) (string, error) {
	absPath, err := s.policy.ValidateReadPath(s.readRoot, relPath)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
