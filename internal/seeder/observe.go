// Package seeder implements an automated client that seeds a running scene.
// It observes the scene via the API, decides where a new ray would fill the
// most open space, and inserts it via the admin endpoint.
package seeder

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/widmanstatten/internal/scene"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status Status      `json:"status"`
	Rays   []scene.Ray `json:"rays"`
}

// Status mirrors the fields of GET /api/v1/status the seeder uses.
type Status struct {
	Tick    uint64       `json:"tick"`
	Running bool         `json:"running"`
	Settled bool         `json:"settled"`
	Rays    int          `json:"rays"`
	Growing int          `json:"growing"`
	Scene   scene.Bounds `json:"scene"`
}

// Observer reads scene state from the public API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Observe collects the status and the ray list.
func (o *Observer) Observe() (*Snapshot, error) {
	var snap Snapshot
	if err := o.get("/api/v1/status", &snap.Status); err != nil {
		return nil, err
	}
	if err := o.get("/api/v1/rays", &snap.Rays); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (o *Observer) get(path string, out any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s (%d): %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
