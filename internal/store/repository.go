/**
 * @description
 * This file defines the Repository interface for the tip-service's data access
 * layer. Abstracting database operations behind an interface decouples the
 * settlement engine from PostgreSQL and lets tests substitute in-memory stubs.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/domain"
)

// SettleTipParams carries the values persisted when a pending tip transitions to
// completed.
type SettleTipParams struct {
	OrderID        string
	PaymentID      string
	Commission     int64
	TransferAmount int64
}

// Repository defines the data access contract for streamers and tips.
type Repository interface {
	FindStreamerByID(ctx context.Context, id uuid.UUID) (*domain.Streamer, error)
	FindStreamerByUsername(ctx context.Context, username string) (*domain.Streamer, error)
	UpdateOverlaySettings(ctx context.Context, streamerID uuid.UUID, settings domain.OverlaySettings) error
	UpdateAlertToken(ctx context.Context, streamerID uuid.UUID, token string) error

	CreateTip(ctx context.Context, tip *domain.Tip) error
	FindTipByOrderID(ctx context.Context, orderID string) (*domain.Tip, error)
	// SettleTip atomically marks the pending tip for OrderID as completed and
	// increments the owning streamer's earnings and tip count. The conditional
	// update on the pending status is the idempotency guard: a replayed webhook
	// observes ErrTipAlreadySettled and must not credit again.
	SettleTip(ctx context.Context, params SettleTipParams) (*domain.Tip, error)
	MarkTipFailed(ctx context.Context, orderID string, reason string) error
	ListRecentTips(ctx context.Context, streamerID uuid.UUID, limit int) ([]domain.Tip, error)
	ListCompletedTipsSince(ctx context.Context, streamerID uuid.UUID, since time.Time) ([]domain.Tip, error)
}
