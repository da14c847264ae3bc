/**
 * @description
 * This file contains the consumer-side processing for settled tips. A
 * tip.completed event triggers two independent, best-effort actions: the
 * payout transfer to the streamer's linked account, and the donation alert
 * push to the streamer's alert provider. Neither action can revert a settled
 * tip; failures are logged and the tip stays completed.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/tippay/tip-service/internal/domain"
	"github.com/tippay/tip-service/pkg/streamlabs"
)

const (
	transferTimeout = 15 * time.Second
	alertTimeout    = 10 * time.Second
)

// HandleTipCompletedMessage is the broker delivery handler for the
// tip.completed binding. It returns true when the delivery should be acked.
func (s *Service) HandleTipCompletedMessage(body []byte) bool {
	var event domain.TipCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// A malformed payload will never parse on redelivery; drop it.
		log.Printf("level=error component=consumer msg=\"dropping malformed tip completed event\" err=%v", err)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), directDispatchTimeout)
	defer cancel()
	s.ProcessTipCompleted(ctx, event)
	return true
}

// ProcessTipCompleted runs the out-of-band work for a settled tip.
func (s *Service) ProcessTipCompleted(ctx context.Context, event domain.TipCompletedEvent) {
	streamer, err := s.repo.FindStreamerByID(ctx, event.StreamerID)
	if err != nil {
		log.Printf("level=error component=consumer msg=\"streamer lookup failed for settled tip\" tip_id=%s streamer_id=%s err=%v",
			event.TipID, event.StreamerID, err)
		return
	}

	if err := s.transferPayout(ctx, streamer, event); err != nil {
		log.Printf("level=error component=consumer msg=\"payout transfer failed; tip remains settled\" tip_id=%s err=%v", event.TipID, err)
	}

	if err := s.pushAlert(ctx, streamer, event); err != nil {
		log.Printf("level=warn component=consumer msg=\"alert push failed\" tip_id=%s err=%v", event.TipID, err)
	}
}

func (s *Service) transferPayout(ctx context.Context, streamer *domain.Streamer, event domain.TipCompletedEvent) error {
	if streamer.PayoutAccountID == nil || *streamer.PayoutAccountID == "" {
		log.Printf("level=info component=consumer msg=\"no payout account linked; skipping transfer\" streamer_id=%s tip_id=%s",
			streamer.ID, event.TipID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	transfer, err := s.gateway.CreateTransfer(ctx, *streamer.PayoutAccountID, event.TransferAmount, tipCurrency)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	log.Printf("level=info component=consumer msg=\"payout transfer created\" tip_id=%s transfer_id=%s amount=%d",
		event.TipID, transfer.ID, event.TransferAmount)
	return nil
}

func (s *Service) pushAlert(ctx context.Context, streamer *domain.Streamer, event domain.TipCompletedEvent) error {
	if s.alerts == nil || streamer.AlertToken == nil || *streamer.AlertToken == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()

	return s.alerts.PushDonation(ctx, *streamer.AlertToken, streamlabs.Donation{
		Name:       event.Donor,
		Message:    event.Message,
		Amount:     strconv.FormatFloat(float64(event.Amount)/100, 'f', 2, 64),
		Currency:   tipCurrency,
		CreatedAt:  event.Timestamp.UTC().Format(time.RFC3339),
		Identifier: event.TipID.String(),
	})
}
