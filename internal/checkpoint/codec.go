package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/agentloop/memory"
)

const maxRecordLine = 16 << 20

// EncodeTurns renders turns as JSONL. An empty slice encodes to an empty record.
func EncodeTurns(turns []memory.Turn) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, t := range turns {
		if err := enc.Encode(t); err != nil {
			return nil, fmt.Errorf("encode turn %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeTurns parses a JSONL record. Blank lines are skipped.
func DecodeTurns(data []byte) ([]memory.Turn, error) {
	turns := []memory.Turn{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var t memory.Turn
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !t.Role.Valid() {
			return nil, fmt.Errorf("line %d: unknown role %q", line, t.Role)
		}
		turns = append(turns, t)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}
