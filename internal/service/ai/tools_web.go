package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

const (
	weatherBaseURL = "https://api.open-meteo.com/v1/forecast"
	searchBaseURL  = "https://api.duckduckgo.com/"
)

func newToolHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// WeatherTool fetches current conditions from the Open-Meteo API.
type WeatherTool struct {
	Client *http.Client
	// BaseURL overrides the default endpoint, used by tests.
	BaseURL string
}

func (t *WeatherTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolGetWeather,
		Desc: "Get the current weather at a location",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"latitude":  {Type: schema.Number, Desc: "Latitude in degrees", Required: true},
			"longitude": {Type: schema.Number, Desc: "Longitude in degrees", Required: true},
		}),
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args string) (string, error) {
	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	base := t.BaseURL
	if base == "" {
		base = weatherBaseURL
	}
	endpoint := fmt.Sprintf("%s?latitude=%f&longitude=%f&current=temperature_2m,weather_code&timezone=auto",
		base, payload.Latitude, payload.Longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	client := t.Client
	if client == nil {
		client = newToolHTTPClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather service returned %d", resp.StatusCode)
	}

	var body struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
		CurrentUnits struct {
			Temperature string `json:"temperature_2m"`
		} `json:"current_units"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	return fmt.Sprintf("Current temperature: %.1f%s (weather code %d).",
		body.Current.Temperature, body.CurrentUnits.Temperature, body.Current.WeatherCode), nil
}

// WebSearchTool queries the DuckDuckGo instant-answer API.
type WebSearchTool struct {
	Client *http.Client
	// BaseURL overrides the default endpoint, used by tests.
	BaseURL string
}

func (t *WebSearchTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolWebSearch,
		Desc: "Search the web for up-to-date information",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Search query", Required: true},
		}),
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(payload.Query) == "" {
		return "", fmt.Errorf("query is required")
	}

	base := t.BaseURL
	if base == "" {
		base = searchBaseURL
	}
	endpoint := fmt.Sprintf("%s?q=%s&format=json&no_html=1", base, url.QueryEscape(payload.Query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	client := t.Client
	if client == nil {
		client = newToolHTTPClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search service returned %d", resp.StatusCode)
	}

	var body struct {
		AbstractText  string `json:"AbstractText"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	var parts []string
	if body.AbstractText != "" {
		parts = append(parts, body.AbstractText)
	}
	for _, topic := range body.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		parts = append(parts, topic.Text)
		if len(parts) >= 4 {
			break
		}
	}
	if len(parts) == 0 {
		return "No results found.", nil
	}
	return strings.Join(parts, "\n"), nil
}
