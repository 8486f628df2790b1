package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"igyan-auth-svc/src/internal/config"
)

// IPEcho calls a public IP-echo endpoint to learn the client-visible address.
// Callers treat every failure as non-fatal; the explicit timeout keeps the
// fail-open contract from turning into a hang.
type IPEcho struct {
	url        string
	httpClient *http.Client
}

func NewIPEcho(cfg *config.ProbeSettings) *IPEcho {
	return &IPEcho{
		url: cfg.IPEchoUrl,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (c *IPEcho) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ip echo service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip echo service returned status: %d", resp.StatusCode)
	}

	var response struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if response.IP == "" {
		return "", fmt.Errorf("ip echo service returned empty address")
	}

	return response.IP, nil
}
