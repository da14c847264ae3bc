/**
 * @description
 * This package provides a client for interacting with the Razorpay payment
 * gateway API. It encapsulates the logic for making authenticated HTTP requests
 * to the orders and transfers endpoints, verifying webhook signatures, and
 * parsing responses.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha256: For webhook signature verification.
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrGatewayUnavailable wraps transport errors and gateway 5xx responses.
	// Callers may retry with backoff.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrSignatureInvalid is returned when a webhook payload fails HMAC
	// verification. Nothing in the payload may be trusted.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

// Client is a client for the Razorpay API.
type Client struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	HTTPClient    *http.Client
}

// NewClient creates a new Razorpay API client.
func NewClient(baseURL, keyID, keySecret, webhookSecret string) *Client {
	return &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Order is the gateway order resource returned by the orders endpoint.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // in paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Transfer is the gateway transfer resource returned by the transfers endpoint.
type Transfer struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"` // in paise
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type transferRequest struct {
	Account  string `json:"account"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OnHold   bool   `json:"on_hold"`
}

// ErrorResponse represents an error body from the Razorpay API.
type ErrorResponse struct {
	ErrorDetail struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorDetail.Code != "" || e.ErrorDetail.Description != "" {
		return fmt.Sprintf("gateway api error: %s - %s", e.ErrorDetail.Code, e.ErrorDetail.Description)
	}
	return "unknown gateway api error"
}

// CreateOrder asks the gateway to open a payment order for the given amount in
// minor units. The returned order id is the settlement idempotency key for the
// rest of the tip's life.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	payload := orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}
	var order Order
	if err := c.doRequest(ctx, http.MethodPost, "/v1/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateTransfer moves the streamer's share to their linked payout account.
// Best-effort from the caller's point of view: a failure here never unwinds a
// settled tip.
func (c *Client) CreateTransfer(ctx context.Context, payoutAccountID string, amount int64, currency string) (*Transfer, error) {
	payload := transferRequest{
		Account:  payoutAccountID,
		Amount:   amount,
		Currency: currency,
		OnHold:   false,
	}
	var transfer Transfer
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transfers", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against an
// HMAC-SHA256 of the raw body keyed with the webhook secret. It must be called
// before the payload is parsed or acted upon.
func (c *Client) VerifyWebhookSignature(body []byte, signatureHeader string) error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrSignatureInvalid)
	}
	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(header)
	if err != nil {
		return fmt.Errorf("%w: signature not hex encoded", ErrSignatureInvalid)
	}
	if !hmac.Equal(provided, expected) {
		return ErrSignatureInvalid
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil {
			return &apiErr
		}
		return fmt.Errorf("gateway api error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
