/**
 * @description
 * This file contains the core business logic for the tip-service. The `Service`
 * struct orchestrates tip order creation and the dashboard operations,
 * coordinating between the database repository, the payment gateway client, the
 * notification hub, and the message broker.
 *
 * @dependencies
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/razorpay, pkg/streamlabs, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/domain"
	"github.com/tippay/tip-service/internal/store"
	"github.com/tippay/tip-service/pkg/rabbitmq"
	"github.com/tippay/tip-service/pkg/razorpay"
	"github.com/tippay/tip-service/pkg/streamlabs"
)

const (
	tipCurrency            = "INR"
	tipCompletedRoutingKey = "tip.completed"
)

var (
	ErrAmountOutOfRange = errors.New("tip amount outside streamer bounds")
	ErrDuplicateEvent   = errors.New("event already processed")
	ErrRateLimited      = errors.New("too many order requests")
	ErrInvalidOverlay   = errors.New("invalid overlay settings")
	ErrStreamerInactive = errors.New("streamer account is inactive")
)

// GatewayClient is the subset of the payment gateway API the service depends on.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error)
	CreateTransfer(ctx context.Context, payoutAccountID string, amount int64, currency string) (*razorpay.Transfer, error)
}

// AlertClient pushes donation alerts to the third-party alert service.
type AlertClient interface {
	PushDonation(ctx context.Context, accessToken string, donation streamlabs.Donation) error
}

// OverlayPublisher fans events out to connected overlay clients. Satisfied by
// notify.Hub.
type OverlayPublisher interface {
	Publish(streamerID uuid.UUID, event domain.OverlayEvent)
}

// RateLimiter bounds request rates for public endpoints. A nil limiter disables
// limiting.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for tips.
type Service struct {
	repo          store.Repository
	gateway       GatewayClient
	alerts        AlertClient
	hub           OverlayPublisher
	events        rabbitmq.Publisher
	limiter       RateLimiter
	gatewayKeyID  string
	eventExchange string
	commissionBps int64
	orderLimit    int
}

// NewService creates a new tip service instance. A nil events publisher makes
// the service dispatch payout and alert work directly in-process.
func NewService(
	repo store.Repository,
	gateway GatewayClient,
	alerts AlertClient,
	hub OverlayPublisher,
	events rabbitmq.Publisher,
	gatewayKeyID string,
	eventExchange string,
	commissionBps int64,
) *Service {
	return &Service{
		repo:          repo,
		gateway:       gateway,
		alerts:        alerts,
		hub:           hub,
		events:        events,
		gatewayKeyID:  gatewayKeyID,
		eventExchange: eventExchange,
		commissionBps: commissionBps,
	}
}

// SetRateLimiter wires the distributed limiter for the public order endpoint.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.orderLimit = perMinute
}

// CreateTipOrder validates the amount against the streamer's configured bounds,
// opens a gateway order, and records a pending tip keyed by the order id.
func (s *Service) CreateTipOrder(ctx context.Context, username, clientIP string, req domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if s.limiter != nil && s.orderLimit > 0 && clientIP != "" {
		count, _, err := s.limiter.ConsumeRateLimit(ctx, "create_order", clientIP, s.orderLimit, time.Minute)
		if err != nil {
			log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > s.orderLimit {
			return nil, ErrRateLimited
		}
	}

	streamer, err := s.repo.FindStreamerByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !streamer.IsActive {
		return nil, ErrStreamerInactive
	}

	bounds := streamer.OverlaySettings
	if req.Amount < bounds.MinTipAmount || req.Amount > bounds.MaxTipAmount {
		return nil, fmt.Errorf("%w: amount %d not in [%d, %d]", ErrAmountOutOfRange, req.Amount, bounds.MinTipAmount, bounds.MaxTipAmount)
	}

	donor := strings.TrimSpace(req.DonorName)
	if donor == "" {
		donor = "Anonymous"
	}
	message := strings.TrimSpace(req.Message)
	if len(message) > domain.MaxTipMessageLength {
		message = message[:domain.MaxTipMessageLength]
	}

	receipt := fmt.Sprintf("tip_%d", time.Now().UnixNano())
	order, err := s.gateway.CreateOrder(ctx, req.Amount, tipCurrency, receipt, map[string]string{
		"donor":             donor,
		"message":           message,
		"streamer_id":       streamer.ID.String(),
		"streamer_username": streamer.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	tip := &domain.Tip{
		ID:         uuid.New(),
		StreamerID: streamer.ID,
		DonorName:  donor,
		Amount:     req.Amount,
		Message:    message,
		OrderID:    order.ID,
		Status:     domain.TipStatusPending,
	}
	if err := s.repo.CreateTip(ctx, tip); err != nil {
		return nil, fmt.Errorf("persist pending tip: %w", err)
	}

	return &domain.CreateOrderResponse{
		OrderID:      order.ID,
		Key:          s.gatewayKeyID,
		Amount:       req.Amount,
		StreamerName: streamer.Username,
	}, nil
}

// GetOverlayProfile resolves the public overlay descriptor for a username.
func (s *Service) GetOverlayProfile(ctx context.Context, username string) (*domain.Streamer, error) {
	return s.repo.FindStreamerByUsername(ctx, username)
}

// GetStreamerProfile returns a streamer plus their most recent tips for the
// dashboard view.
func (s *Service) GetStreamerProfile(ctx context.Context, streamerID uuid.UUID) (*domain.Streamer, []domain.Tip, error) {
	streamer, err := s.repo.FindStreamerByID(ctx, streamerID)
	if err != nil {
		return nil, nil, err
	}
	recent, err := s.repo.ListRecentTips(ctx, streamerID, 10)
	if err != nil {
		return nil, nil, err
	}
	return streamer, recent, nil
}

// UpdateOverlaySettings persists new overlay configuration and broadcasts the
// change to any connected overlays on the streamer's topic.
func (s *Service) UpdateOverlaySettings(ctx context.Context, streamerID uuid.UUID, settings domain.OverlaySettings) error {
	if !settings.Valid() {
		return fmt.Errorf("%w: min %d, max %d", ErrInvalidOverlay, settings.MinTipAmount, settings.MaxTipAmount)
	}
	if err := s.repo.UpdateOverlaySettings(ctx, streamerID, settings); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.Publish(streamerID, domain.OverlayEvent{
			Kind: domain.EventKindOverlayConfigUpdated,
			Data: settings,
		})
	}
	return nil
}

// SetAlertToken stores the streamer's third-party alert service credential.
func (s *Service) SetAlertToken(ctx context.Context, streamerID uuid.UUID, token string) error {
	return s.repo.UpdateAlertToken(ctx, streamerID, strings.TrimSpace(token))
}

// Analytics aggregates completed tips for a streamer over the given period.
func (s *Service) Analytics(ctx context.Context, streamerID uuid.UUID, period string) (*domain.TipAnalytics, error) {
	var window time.Duration
	switch period {
	case "24h":
		window = 24 * time.Hour
	case "30d":
		window = 30 * 24 * time.Hour
	default:
		window = 7 * 24 * time.Hour
	}

	tips, err := s.repo.ListCompletedTipsSince(ctx, streamerID, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}

	analytics := &domain.TipAnalytics{
		TotalTips:      len(tips),
		TopTippers:     make(map[string]int64),
		DailyBreakdown: make(map[string]int64),
	}
	for _, tip := range tips {
		analytics.TotalAmount += tip.Amount
		analytics.TotalEarnings += tip.TransferAmount
		analytics.TopTippers[tip.DonorName] += tip.Amount
		day := tip.CreatedAt.UTC().Format("2006-01-02")
		analytics.DailyBreakdown[day] += tip.Amount
	}
	if len(tips) > 0 {
		analytics.AverageTip = analytics.TotalAmount / int64(len(tips))
	}
	return analytics, nil
}
