package seeder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/widmanstatten/internal/scene"
)

// InsertRequest is the body of POST /api/v1/rays. Omitted attributes are
// chosen by the server.
type InsertRequest struct {
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Orientation *float64 `json:"orientation,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
}

// Actor inserts rays via the admin API.
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

// Act sends an insertion to POST /api/v1/rays and returns the created ray.
func (a *Actor) Act(in *InsertRequest) (*scene.Ray, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal insertion: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, a.BaseURL+"/api/v1/rays", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST rays: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("insertion failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var ray scene.Ray
	if err := json.Unmarshal(respBody, &ray); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ray, nil
}
