package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	client := NewClient("https://api.example.com", "key", "secret", "whsec")
	body := []byte(`{"event":"payment.captured"}`)

	if err := client.VerifyWebhookSignature(body, signBody("whsec", body)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyWebhookSignature_Rejections(t *testing.T) {
	client := NewClient("https://api.example.com", "key", "secret", "whsec")
	body := []byte(`{"event":"payment.captured"}`)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not hex", header: "zzzz-not-hex"},
		{name: "wrong secret", header: signBody("other-secret", body)},
		{name: "tampered body", header: signBody("whsec", []byte(`{"event":"payment.failed"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.VerifyWebhookSignature(body, tt.header)
			if !errors.Is(err, ErrSignatureInvalid) {
				t.Fatalf("expected ErrSignatureInvalid, got %v", err)
			}
		})
	}
}

func TestVerifyWebhookSignature_NoSecretConfigured(t *testing.T) {
	client := NewClient("https://api.example.com", "key", "secret", "")
	body := []byte(`{}`)

	err := client.VerifyWebhookSignature(body, signBody("whsec", body))
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected verification to fail closed without a secret, got %v", err)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Fatal("expected basic auth credentials")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_test123","amount":5000,"currency":"INR","status":"created"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret", "whsec")
	order, err := client.CreateOrder(context.Background(), 5000, "INR", "tip_1", map[string]string{"donor": "Alice"})
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.ID != "order_test123" {
		t.Fatalf("expected order id order_test123, got %q", order.ID)
	}
	if order.Amount != 5000 {
		t.Fatalf("expected amount 5000, got %d", order.Amount)
	}
}

func TestCreateOrder_ServerErrorIsGatewayUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret", "whsec")
	_, err := client.CreateOrder(context.Background(), 5000, "INR", "tip_1", nil)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreateOrder_ClientErrorSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret", "whsec")
	_, err := client.CreateOrder(context.Background(), 1, "INR", "tip_1", nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrorResponse, got %T: %v", err, err)
	}
	if apiErr.ErrorDetail.Code != "BAD_REQUEST_ERROR" {
		t.Fatalf("unexpected error code %q", apiErr.ErrorDetail.Code)
	}
}
