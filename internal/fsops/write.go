package fsops

import (
	"os"
	"path/filepath"

	"github.com/petasbytes/agentloop/internal/safety"
)

// WriteFile writes content to a path relative to the write root, creating
// parent directories as needed. The path is validated again once the parents
// exist, so nothing created in between can redirect the write.
func (s *Sandbox) WriteFile(relPath, content string) error {
	absPath, err := s.policy.ValidateWritePath(s.writeRoot, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	again, err := s.policy.ValidateWritePath(s.writeRoot, relPath)
	if err != nil {
		return err
	}
	if again != absPath {
		return safety.ToolError{Code: safety.CodeOutsideSandbox, Message: "path changed while creating parent directories"}
	}
	return os.WriteFile(absPath, []byte(content), 0o644)
}
