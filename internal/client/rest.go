package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// RESTClient fetches alert snapshots from the HTTP API.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchActive retrieves the full alert list and filters it to the active
// ones. Any non-2xx status is a soft failure for the caller to retry.
func (c *RESTClient) FetchActive(ctx context.Context) ([]models.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/alertas/listar", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("snapshot request failed: %s", res.Status)
	}

	var body struct {
		Alerts []models.Alert `json:"alertas"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	active := make([]models.Alert, 0, len(body.Alerts))
	for _, a := range body.Alerts {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active, nil
}

// FetchReadReceipts retrieves the notification ids this user already
// marked read, for rehydrating read flags after a reconnect.
func (c *RESTClient) FetchReadReceipts(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/notificaciones/leidas", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("read receipt request failed: %s", res.Status)
	}

	var body struct {
		Read []string `json:"leidas"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode read receipts: %w", err)
	}
	return body.Read, nil
}
