/**
 * @description
 * This file defines the tip ledger record and the DTOs used by the public tipping
 * API. A Tip is created in `pending` state when a gateway order is requested and
 * transitions exactly once to `completed` or `failed` during settlement.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tip statuses. Completed and failed are terminal; the settlement engine never
// moves a tip out of a terminal state.
const (
	TipStatusPending   = "pending"
	TipStatusCompleted = "completed"
	TipStatusFailed    = "failed"
)

// MaxTipMessageLength bounds the donor message persisted with a tip.
const MaxTipMessageLength = 200

// Tip represents one tip transaction in the ledger. This struct maps directly to
// the `tips` table. OrderID carries a unique constraint and doubles as the
// idempotency key for webhook deliveries.
type Tip struct {
	ID             uuid.UUID `json:"id"`
	StreamerID     uuid.UUID `json:"streamer_id"`
	DonorName      string    `json:"donor_name"`
	Amount         int64     `json:"amount"` // in paise
	Message        string    `json:"message"`
	OrderID        string    `json:"order_id"`
	PaymentID      *string   `json:"payment_id,omitempty"`
	Status         string    `json:"status"`
	Commission     int64     `json:"commission"`      // in paise
	TransferAmount int64     `json:"transfer_amount"` // in paise
	FailureReason  *string   `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateOrderRequest is the DTO for the public order-creation endpoint.
type CreateOrderRequest struct {
	Amount    int64  `json:"amount"` // in paise
	DonorName string `json:"donor_name"`
	Message   string `json:"message"`
}

// CreateOrderResponse is returned to the tip page so it can open the gateway
// checkout widget.
type CreateOrderResponse struct {
	OrderID      string `json:"order_id"`
	Key          string `json:"key"`
	Amount       int64  `json:"amount"`
	StreamerName string `json:"streamer_name"`
}

// TipAnalytics summarises completed tips for a streamer over a period.
type TipAnalytics struct {
	TotalTips      int              `json:"total_tips"`
	TotalAmount    int64            `json:"total_amount"`
	TotalEarnings  int64            `json:"total_earnings"`
	AverageTip     int64            `json:"average_tip"`
	TopTippers     map[string]int64 `json:"top_tippers"`
	DailyBreakdown map[string]int64 `json:"daily_breakdown"`
}
