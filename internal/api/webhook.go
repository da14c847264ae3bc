/**
 * @description
 * This file contains the webhook handler for payment gateway events. The raw
 * body is authenticated against the gateway signature before any parsing, and
 * only payment.captured events reach the settlement engine. Duplicate
 * deliveries are acknowledged with 200 so the gateway stops retrying.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/tippay/tip-service/internal/app"
	"github.com/tippay/tip-service/internal/domain"
	"github.com/tippay/tip-service/internal/store"
)

const maxWebhookBodyBytes = 1 << 20

// GatewayWebhookHandler processes payment gateway webhook deliveries.
func (h *TipHandlers) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	// Authenticate before parsing. Unsigned or tampered payloads never reach
	// the JSON decoder.
	if err := h.verifier.VerifyWebhookSignature(body, r.Header.Get("X-Razorpay-Signature")); err != nil {
		log.Printf("level=warn component=api endpoint=webhook outcome=reject reason=bad_signature err=%v", err)
		h.writeError(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event domain.GatewayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.writeError(w, http.StatusBadRequest, "Malformed webhook payload")
		return
	}

	if event.Event != domain.GatewayEventPaymentCaptured {
		// Signed but irrelevant. Acknowledge so the gateway does not retry.
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := event.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "Webhook event is missing required payment fields")
		return
	}

	payment := event.Payload.Payment.Entity
	err = h.service.HandleCapture(r.Context(), event.OrderID(), payment.ID, payment.Amount)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, app.ErrDuplicateEvent):
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "already_processed"})
	case errors.Is(err, store.ErrTipNotFound):
		log.Printf("level=warn component=api endpoint=webhook outcome=reject reason=unknown_order order_id=%s", event.OrderID())
		h.writeError(w, http.StatusNotFound, "No tip recorded for this order")
	default:
		log.Printf("level=error component=api endpoint=webhook order_id=%s err=%v", event.OrderID(), err)
		h.writeError(w, http.StatusInternalServerError, "Settlement failed")
	}
}
