package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultNWSBaseURL = "https://api.weather.gov"
	nwsUserAgent      = "weather-app/1.0"
)

const (
	alertsUnavailable = "Unable to fetch alerts or no alerts found."
	alertsNone        = "No active alerts for this state."
)

var stateCode = regexp.MustCompile(`^[A-Z]{2}$`)

type AlertsInput struct {
	State string `json:"state" jsonschema_description:"Two-letter US state code (e.g. CA, NY)."`
}

var AlertsInputSchema = GenerateSchema[AlertsInput]()

// WeatherConfig configures the NWS alerts tool.
type WeatherConfig struct {
	BaseURL string
	Client  *http.Client
}

// AlertsTool reports active weather alerts for a US state.
func AlertsTool(cfg WeatherConfig) ToolDefinition {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNWSBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return ToolDefinition{
		Name:        "get_alerts",
		Description: "Get active weather alerts for a US state. Input is a two-letter state code.",
		InputSchema: AlertsInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in AlertsInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			state := strings.ToUpper(strings.TrimSpace(in.State))
			if !stateCode.MatchString(state) {
				return "", fmt.Errorf("state must be a two-letter code, got %q", in.State)
			}
			return fetchAlerts(ctx, cfg, state)
		},
	}
}

// fetchAlerts maps transport and HTTP failures to alertsUnavailable, matching
// what the model sees when the service has nothing to say.
func fetchAlerts(ctx context.Context, cfg WeatherConfig, state string) (string, error) {
	url := fmt.Sprintf("%s/alerts/active/area/%s", cfg.BaseURL, state)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", nwsUserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return alertsUnavailable, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		return alertsUnavailable, nil
	}

	doc := gjson.ParseBytes(raw)
	features := doc.Get("features")
	if !features.Exists() {
		return alertsUnavailable, nil
	}
	if len(features.Array()) == 0 {
		return alertsNone, nil
	}

	var alerts []string
	features.ForEach(func(_, f gjson.Result) bool {
		alerts = append(alerts, formatAlert(f.Get("properties")))
		return true
	})
	return strings.Join(alerts, "\n---\n"), nil
}

func formatAlert(props gjson.Result) string {
	field := func(path, fallback string) string {
		if v := props.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
		return fallback
	}
	return fmt.Sprintf(`
Event: %s
Area: %s
Severity: %s
Description: %s
Instructions: %s
`,
		field("event", "Unknown"),
		field("areaDesc", "Unknown"),
		field("severity", "Unknown"),
		field("description", "No description available"),
		field("instruction", "No specific instructions provided"),
	)
}
