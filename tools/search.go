package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultSerperURL = "https://google.serper.dev/search"

const noSearchResult = "No good Google Search Result was found"

type SearchInput struct {
	Query string `json:"q" jsonschema_description:"Search query."`
}

var SearchInputSchema = GenerateSchema[SearchInput]()

// SearchConfig configures the Serper-backed search tool.
type SearchConfig struct {
	APIKey string
	// URL overrides the Serper endpoint.
	URL    string
	Client *http.Client
}

// SearchTool queries Google through the Serper API.
func SearchTool(cfg SearchConfig) ToolDefinition {
	if cfg.URL == "" {
		cfg.URL = defaultSerperURL
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return ToolDefinition{
		Name:        "search",
		Description: "Useful for when you need more information from an online search",
		InputSchema: SearchInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in SearchInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", fmt.Errorf("query cannot be empty")
			}
			return serperSearch(ctx, cfg, in.Query)
		},
	}
}

func serperSearch(ctx context.Context, cfg SearchConfig, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-KEY", cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serper returned %s", resp.Status)
	}
	return summarizeSerper(raw), nil
}

// summarizeSerper prefers a direct answer, then the knowledge graph, then organic snippets.
func summarizeSerper(raw []byte) string {
	doc := gjson.ParseBytes(raw)

	for _, path := range []string{"answerBox.answer", "answerBox.snippet", "answerBox.snippetHighlighted.0"} {
		if v := doc.Get(path); v.Exists() && strings.TrimSpace(v.String()) != "" {
			return v.String()
		}
	}

	var parts []string
	kg := doc.Get("knowledgeGraph")
	if kg.Exists() {
		title := kg.Get("title").String()
		if t := kg.Get("type").String(); title != "" && t != "" {
			parts = append(parts, fmt.Sprintf("%s: %s.", title, t))
		}
		if d := kg.Get("description").String(); d != "" {
			parts = append(parts, d)
		}
		kg.Get("attributes").ForEach(func(k, v gjson.Result) bool {
			parts = append(parts, fmt.Sprintf("%s %s: %s.", title, k.String(), v.String()))
			return true
		})
	}

	doc.Get("organic.#.snippet").ForEach(func(_, v gjson.Result) bool {
		if s := strings.TrimSpace(v.String()); s != "" {
			parts = append(parts, s)
		}
		return true
	})

	if len(parts) == 0 {
		return noSearchResult
	}
	return strings.Join(parts, " ")
}
