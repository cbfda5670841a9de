package steward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected is returned when the island refused the turn (game over or
// not enough mana).
var ErrRejected = errors.New("turn rejected")

// TurnResult is the response from POST /api/v1/action.
type TurnResult struct {
	Result struct {
		Action  string `json:"action"`
		Outcome string `json:"outcome"`
		Year    int    `json:"year"`
		Log     string `json:"log"`
	} `json:"result"`
	Status IslandStatus `json:"status"`
}

// Actor plays turns via the creator API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends the decided action to POST /api/v1/action.
func (a *Actor) Act(ctx context.Context, d *Decision) (*TurnResult, error) {
	body, err := json.Marshal(map[string]string{"action": d.Action})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/v1/action", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST action: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		var result TurnResult
		if json.Unmarshal(respBody, &result) == nil && result.Result.Outcome != "" {
			return &result, fmt.Errorf("%w: %s", ErrRejected, result.Result.Outcome)
		}
		return nil, ErrRejected
	default:
		return nil, fmt.Errorf("action failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var result TurnResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
