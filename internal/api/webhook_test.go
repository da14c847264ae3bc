package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/tippay/tip-service/internal/domain"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedEventBody(t *testing.T, orderID, paymentID string, amount int64) []byte {
	t.Helper()
	body := []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"payload": {
			"payment": {"entity": {"id": %q, "order_id": %q, "amount": %d, "status": "captured"}},
			"order": {"entity": {"id": %q, "amount": %d}}
		},
		"created_at": 1719000000
	}`, paymentID, orderID, amount, orderID, amount))
	var check domain.GatewayWebhookEvent
	if err := json.Unmarshal(body, &check); err != nil {
		t.Fatalf("test fixture is not valid JSON: %v", err)
	}
	return body
}

func postWebhook(t *testing.T, url string, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestWebhookSettlesCapturedPayment(t *testing.T) {
	env := newTestEnv(t)
	seedPendingTipForEnv(env, "order_wh_1", 5000)

	body := capturedEventBody(t, "order_wh_1", "pay_wh_1", 5000)
	resp := postWebhook(t, env.server.URL+"/api/webhook", body, signBody("whsec_test", body))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	tip, err := env.repo.FindTipByOrderID(context.Background(), "order_wh_1")
	if err != nil {
		t.Fatalf("FindTipByOrderID: %v", err)
	}
	if tip.Status != domain.TipStatusCompleted {
		t.Fatalf("tip status = %q, want completed", tip.Status)
	}
	if tip.Commission != 250 || tip.TransferAmount != 4750 {
		t.Fatalf("split = (%d, %d), want (250, 4750)", tip.Commission, tip.TransferAmount)
	}

	streamer, _ := env.repo.FindStreamerByID(context.Background(), env.streamer.ID)
	if streamer.TotalEarnings != 4750 || streamer.TipCount != 1 {
		t.Fatalf("streamer credit = (%d, %d), want (4750, 1)", streamer.TotalEarnings, streamer.TipCount)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	seedPendingTipForEnv(env, "order_wh_2", 5000)

	body := capturedEventBody(t, "order_wh_2", "pay_wh_2", 5000)

	cases := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"wrong secret", signBody("other_secret", body)},
		{"not hex", "zzzz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postWebhook(t, env.server.URL+"/api/webhook", body, tc.signature)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
		})
	}

	tip, _ := env.repo.FindTipByOrderID(context.Background(), "order_wh_2")
	if tip.Status != domain.TipStatusPending {
		t.Fatalf("unsigned webhook mutated tip status to %q", tip.Status)
	}
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	env := newTestEnv(t)
	seedPendingTipForEnv(env, "order_wh_3", 5000)

	body := capturedEventBody(t, "order_wh_3", "pay_wh_3", 5000)
	signature := signBody("whsec_test", body)
	tampered := bytes.Replace(body, []byte(`"amount": 5000`), []byte(`"amount": 9000`), 1)

	resp := postWebhook(t, env.server.URL+"/api/webhook", tampered, signature)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWebhookReplayIsAcknowledgedWithoutDoubleCredit(t *testing.T) {
	env := newTestEnv(t)
	seedPendingTipForEnv(env, "order_wh_4", 5000)

	body := capturedEventBody(t, "order_wh_4", "pay_wh_4", 5000)
	signature := signBody("whsec_test", body)

	for i := 0; i < 3; i++ {
		resp := postWebhook(t, env.server.URL+"/api/webhook", body, signature)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	streamer, _ := env.repo.FindStreamerByID(context.Background(), env.streamer.ID)
	if streamer.TotalEarnings != 4750 || streamer.TipCount != 1 {
		t.Fatalf("replays credited more than once: earnings=%d count=%d", streamer.TotalEarnings, streamer.TipCount)
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"event": "payment.failed", "payload": {}, "created_at": 1719000000}`)
	resp := postWebhook(t, env.server.URL+"/api/webhook", body, signBody("whsec_test", body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for ignored event", resp.StatusCode)
	}
}

func TestWebhookUnknownOrderReturns404(t *testing.T) {
	env := newTestEnv(t)

	body := capturedEventBody(t, "order_never_created", "pay_x", 5000)
	resp := postWebhook(t, env.server.URL+"/api/webhook", body, signBody("whsec_test", body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWebhookRejectsMalformedEnvelope(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"event": "payment.captured", "payload": {"payment": {"entity": {"id": "", "amount": 0}}}}`)
	resp := postWebhook(t, env.server.URL+"/api/webhook", body, signBody("whsec_test", body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookOutOfBoundsCaptureRecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	seedPendingTipForEnv(env, "order_wh_5", 500)

	body := capturedEventBody(t, "order_wh_5", "pay_wh_5", 500)
	resp := postWebhook(t, env.server.URL+"/api/webhook", body, signBody("whsec_test", body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for recorded failure", resp.StatusCode)
	}

	tip, _ := env.repo.FindTipByOrderID(context.Background(), "order_wh_5")
	if tip.Status != domain.TipStatusFailed {
		t.Fatalf("tip status = %q, want failed", tip.Status)
	}
	streamer, _ := env.repo.FindStreamerByID(context.Background(), env.streamer.ID)
	if streamer.TotalEarnings != 0 {
		t.Fatal("out of bounds capture credited the streamer")
	}
}
