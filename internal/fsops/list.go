package fsops

import (
	"os"
	"sort"
)

// ListFiles returns the sorted, non-recursive entries of a directory relative
// to the read root. Directories carry a trailing "/".
func (s *Sandbox) ListFiles(relDir string) ([]string, error) {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := s.policy.ValidateReadPath(s.readRoot, relDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
