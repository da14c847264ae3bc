/**
 * @description
 * This file defines the strictly-typed envelope for gateway webhook events.
 * The original payload shape from the gateway is parsed and validated at the
 * boundary before any business logic executes.
 */

package domain

import "errors"

// GatewayEventPaymentCaptured is the only webhook event the settlement engine
// acts on; everything else is acknowledged and dropped.
const GatewayEventPaymentCaptured = "payment.captured"

var ErrMalformedWebhookEvent = errors.New("malformed webhook event")

// PaymentEntity is the captured-payment resource inside a webhook event.
type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"` // in paise
	Status  string `json:"status"`
}

// OrderEntity is the order resource inside a webhook event.
type OrderEntity struct {
	ID      string `json:"id"`
	Amount  int64  `json:"amount"` // in paise
	Receipt string `json:"receipt"`
}

// GatewayWebhookEvent is the wire envelope delivered to the webhook endpoint.
type GatewayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// Validate checks the fields the settlement engine relies on. Only called for
// payment.captured events.
func (e *GatewayWebhookEvent) Validate() error {
	p := e.Payload.Payment.Entity
	if p.ID == "" || p.Amount <= 0 {
		return ErrMalformedWebhookEvent
	}
	if p.OrderID == "" && e.Payload.Order.Entity.ID == "" {
		return ErrMalformedWebhookEvent
	}
	return nil
}

// OrderID returns the settlement idempotency key, preferring the payment's
// order reference over the embedded order entity.
func (e *GatewayWebhookEvent) OrderID() string {
	if id := e.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return e.Payload.Order.Entity.ID
}
