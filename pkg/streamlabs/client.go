/**
 * @description
 * This package provides a minimal client for the Streamlabs donations API, used
 * to mirror settled tips into a streamer's third-party alert box. Every call is
 * best-effort: failures are reported to the caller for logging but never affect
 * the tip ledger.
 */
package streamlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the Streamlabs API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Streamlabs API client. The access token is supplied
// per call because each streamer carries their own credential.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Donation is the alert payload accepted by the donations endpoint.
type Donation struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"created_at"`
	Identifier string `json:"identifier"`
}

// PushDonation posts one donation alert on behalf of a streamer.
func (c *Client) PushDonation(ctx context.Context, accessToken string, donation Donation) error {
	body, err := json.Marshal(donation)
	if err != nil {
		return fmt.Errorf("marshal donation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v2.0/donations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build donation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("push donation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push donation: alert service returned status %d", resp.StatusCode)
	}
	return nil
}
