// Package fsops performs file I/O confined to a sandbox root.
package fsops

import (
	"fmt"
	"os"

	"github.com/petasbytes/agentloop/internal/safety"
)

// Sandbox resolves every path through safety before touching the filesystem.
type Sandbox struct {
	readRoot  string
	writeRoot string
	policy    safety.Policy
}

// New resolves both roots. An empty writeRoot shares readRoot. The write root
// is created when missing so a fresh workspace can be written to immediately.
func New(readRoot, writeRoot string) (*Sandbox, error) {
	if writeRoot == "" {
		writeRoot = readRoot
	}
	if writeRoot != "" {
		if err := os.MkdirAll(writeRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create write root: %w", err)
		}
	}
	r, err := safety.ResolveRoot(readRoot)
	if err != nil {
		return nil, err
	}
	w, err := safety.ResolveRoot(writeRoot)
	if err != nil {
		return nil, err
	}
	return &Sandbox{readRoot: r, writeRoot: w, policy: safety.DefaultPolicy()}, nil
}

// WithPolicy returns a copy of s enforcing p.
func (s *Sandbox) WithPolicy(p safety.Policy) *Sandbox {
	c := *s
	c.policy = p
	return &c
}

func (s *Sandbox) ReadRoot() string  { return s.readRoot }
func (s *Sandbox) WriteRoot() string { return s.writeRoot }
