/**
 * @description
 * This file defines the core domain models for streamers and their overlay
 * configuration. These structs represent the main entities used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Monetary values are stored as `int64` in the smallest currency unit (paise),
 *   which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OverlaySettings holds the per-streamer configuration for the on-stream alert
// overlay. Tip amount bounds are enforced both when an order is created and again
// when the gateway reports a capture.
type OverlaySettings struct {
	Theme               string `json:"theme"`
	ShowAmount          bool   `json:"show_amount"`
	ShowMessage         bool   `json:"show_message"`
	SoundEnabled        bool   `json:"sound_enabled"`
	MinTipAmount        int64  `json:"min_tip_amount"` // in paise
	MaxTipAmount        int64  `json:"max_tip_amount"` // in paise
	AnimationDurationMS int64  `json:"animation_duration_ms"`
}

// DefaultOverlaySettings returns the settings applied to a streamer that has
// never customised their overlay.
func DefaultOverlaySettings() OverlaySettings {
	return OverlaySettings{
		Theme:               "default",
		ShowAmount:          true,
		ShowMessage:         true,
		SoundEnabled:        true,
		MinTipAmount:        1000,    // ₹10
		MaxTipAmount:        1000000, // ₹10,000
		AnimationDurationMS: 5000,
	}
}

// Valid reports whether the settings satisfy the min/max bound invariant.
func (s OverlaySettings) Valid() bool {
	return s.MinTipAmount > 0 && s.MinTipAmount <= s.MaxTipAmount && s.AnimationDurationMS >= 0
}

// Streamer represents an account that can receive tips. This struct maps directly
// to the `streamers` table. TotalEarnings and TipCount are mutated only by the
// settlement engine.
type Streamer struct {
	ID              uuid.UUID       `json:"id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	PayoutAccountID *string         `json:"payout_account_id,omitempty"`
	AlertToken      *string         `json:"-"`
	OverlaySettings OverlaySettings `json:"overlay_settings"`
	IsActive        bool            `json:"is_active"`
	TotalEarnings   int64           `json:"total_earnings"` // in paise
	TipCount        int64           `json:"tip_count"`
	CreatedAt       time.Time       `json:"created_at"`
	LastActive      time.Time       `json:"last_active"`
}
