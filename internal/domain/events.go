/**
 * @description
 * This file defines the event payloads that flow out of the settlement engine:
 * overlay events fanned out on the in-process notification bus, and the
 * tip.completed event published to RabbitMQ for out-of-band payout and alert
 * processing.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Overlay event kinds delivered on a streamer's notification topic.
const (
	EventKindNewTip               = "new_tip"
	EventKindOverlayConfigUpdated = "overlay_config_updated"
)

// OverlayEvent is one message on a streamer's overlay topic. Data is either a
// NewTipEvent or an OverlaySettings depending on Kind.
type OverlayEvent struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// NewTipEvent is pushed to the overlay when a tip settles.
type NewTipEvent struct {
	TipID     uuid.UUID `json:"tip_id"`
	Donor     string    `json:"donor"`
	Amount    int64     `json:"amount"` // in paise
	Message   string    `json:"message"`
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TipCompletedEvent is published to the message broker after a tip has been
// durably settled. Consumers use it to run the payout transfer and the
// third-party alert, both decoupled from the webhook response path.
type TipCompletedEvent struct {
	TipID          uuid.UUID `json:"tip_id"`
	StreamerID     uuid.UUID `json:"streamer_id"`
	Donor          string    `json:"donor"`
	Message        string    `json:"message"`
	Amount         int64     `json:"amount"`          // in paise
	TransferAmount int64     `json:"transfer_amount"` // in paise
	PaymentID      string    `json:"payment_id"`
	Timestamp      time.Time `json:"timestamp"`
}
