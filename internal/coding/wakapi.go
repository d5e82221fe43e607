package coding

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const healthTimeout = 5 * time.Second

// WakapiClient talks to a local Wakapi instance's summaries API.
type WakapiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewWakapiClient creates a client for the given base URL and API key.
func NewWakapiClient(baseURL, apiKey string) *WakapiClient {
	return &WakapiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Healthy probes /api/health. Any HTTP response counts as up; only a
// transport failure (service not running) counts as down.
func (c *WakapiClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// ProjectSummary is one project's total coding time for a day.
type ProjectSummary struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
	Text         string  `json:"text"`
}

type summariesResponse struct {
	Data []struct {
		Projects []ProjectSummary `json:"projects"`
	} `json:"data"`
}

// Summaries fetches the per-project coding totals for one day
// (YYYY-MM-DD).
func (c *WakapiClient) Summaries(ctx context.Context, day string) ([]ProjectSummary, error) {
	url := fmt.Sprintf("%s/api/v1/users/current/summaries?start=%s&end=%s", c.baseURL, day, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building summaries request: %w", err)
	}
	// Wakapi expects the API key as the basic-auth password with an
	// empty user.
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.apiKey)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching summaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("summaries request returned %s", resp.Status)
	}

	var parsed summariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding summaries: %w", err)
	}

	var out []ProjectSummary
	for _, d := range parsed.Data {
		out = append(out, d.Projects...)
	}
	return out, nil
}
