/**
 * @description
 * This file contains the settlement engine for captured payments. A verified
 * payment.captured webhook event flows through HandleCapture, which settles the
 * pending tip exactly once, credits the streamer, notifies connected overlays,
 * and hands the payout transfer and alert work to the message broker.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go (via pkg/rabbitmq): For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tippay/tip-service/internal/domain"
	"github.com/tippay/tip-service/internal/store"
)

const directDispatchTimeout = 30 * time.Second

// HandleCapture settles the tip identified by orderID after a verified
// payment capture. The settlement itself is idempotent: a replayed event for
// an already-completed tip returns ErrDuplicateEvent and credits nothing.
func (s *Service) HandleCapture(ctx context.Context, orderID, paymentID string, capturedAmount int64) error {
	tip, err := s.repo.FindTipByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	streamer, err := s.repo.FindStreamerByID(ctx, tip.StreamerID)
	if err != nil {
		return fmt.Errorf("load streamer %s: %w", tip.StreamerID, err)
	}

	// The gateway is the source of truth for the captured amount. A capture
	// that no longer satisfies the streamer's bounds, or that disagrees with
	// the recorded order amount, is recorded as failed and never credited.
	bounds := streamer.OverlaySettings
	if capturedAmount != tip.Amount || capturedAmount < bounds.MinTipAmount || capturedAmount > bounds.MaxTipAmount {
		reason := fmt.Sprintf("captured amount %d outside [%d, %d] or mismatched with order amount %d",
			capturedAmount, bounds.MinTipAmount, bounds.MaxTipAmount, tip.Amount)
		if err := s.repo.MarkTipFailed(ctx, orderID, reason); err != nil && !errors.Is(err, store.ErrTipAlreadyFailed) {
			return fmt.Errorf("mark tip failed for order %s: %w", orderID, err)
		}
		log.Printf("level=warn component=settlement msg=\"captured amount rejected\" order_id=%s captured=%d recorded=%d min=%d max=%d",
			orderID, capturedAmount, tip.Amount, bounds.MinTipAmount, bounds.MaxTipAmount)
		return nil
	}

	commission := capturedAmount * s.commissionBps / 10000
	transferAmount := capturedAmount - commission

	settled, err := s.repo.SettleTip(ctx, store.SettleTipParams{
		OrderID:        orderID,
		PaymentID:      paymentID,
		Commission:     commission,
		TransferAmount: transferAmount,
	})
	if err != nil {
		if errors.Is(err, store.ErrTipAlreadySettled) || errors.Is(err, store.ErrTipAlreadyFailed) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("settle tip for order %s: %w", orderID, err)
	}

	log.Printf("level=info component=settlement msg=\"tip settled\" tip_id=%s order_id=%s payment_id=%s amount=%d commission=%d transfer=%d",
		settled.ID, orderID, paymentID, settled.Amount, settled.Commission, settled.TransferAmount)

	if s.hub != nil {
		s.hub.Publish(settled.StreamerID, domain.OverlayEvent{
			Kind: domain.EventKindNewTip,
			Data: domain.NewTipEvent{
				TipID:     settled.ID,
				Donor:     settled.DonorName,
				Amount:    settled.Amount,
				Message:   settled.Message,
				PaymentID: paymentID,
				Timestamp: time.Now().UTC(),
			},
		})
	}

	s.publishTipCompleted(domain.TipCompletedEvent{
		TipID:          settled.ID,
		StreamerID:     settled.StreamerID,
		Donor:          settled.DonorName,
		Message:        settled.Message,
		Amount:         settled.Amount,
		TransferAmount: settled.TransferAmount,
		PaymentID:      paymentID,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

// publishTipCompleted hands the payout transfer and alert work off to the
// broker. When the broker is unreachable the work runs directly in-process so
// a settled tip never strands its payout.
func (s *Service) publishTipCompleted(event domain.TipCompletedEvent) {
	if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.events.Publish(ctx, s.eventExchange, tipCompletedRoutingKey, event)
		cancel()
		if err == nil {
			return
		}
		log.Printf("level=warn component=settlement msg=\"broker publish failed; dispatching directly\" tip_id=%s err=%v", event.TipID, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), directDispatchTimeout)
		defer cancel()
		s.ProcessTipCompleted(ctx, event)
	}()
}
