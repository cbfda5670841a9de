// Package steward implements the autonomous island keeper.
// It observes the island via the API, triages its health, picks an
// affordable action and plays it through the creator endpoint.
package steward

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status  IslandStatus `json:"status"`
	Actions []ActionInfo `json:"actions"`
}

// IslandStatus mirrors GET /api/v1/status.
type IslandStatus struct {
	GameID          string   `json:"game_id"`
	Year            int      `json:"year"`
	Status          string   `json:"status"`
	Mana            int      `json:"mana"`
	MaxMana         int      `json:"max_mana"`
	Regen           int      `json:"regen"`
	Biodiversity    int      `json:"biodiversity"`
	GlobalStability int      `json:"global_stability"`
	HumanPopulation int      `json:"human_population"`
	TotalLife       int      `json:"total_life"`
	Land            int      `json:"land"`
	EraName         string   `json:"era_name"`
	EraDescription  string   `json:"era_description"`
	Logs            []string `json:"logs"`
}

// Playing reports whether the island still accepts actions.
func (s IslandStatus) Playing() bool {
	return s.Status == "playing"
}

// ActionInfo mirrors items from GET /api/v1/actions.
type ActionInfo struct {
	Action     string `json:"action"`
	Cost       int    `json:"cost"`
	Affordable bool   `json:"affordable"`
}

// Observer fetches island state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches the status and action endpoints and returns a Snapshot.
func (o *Observer) Observe(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/actions", &snap.Actions); err != nil {
		return nil, fmt.Errorf("fetch actions: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
