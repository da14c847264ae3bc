package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/domain"
)

func completedEvent(streamerID uuid.UUID) domain.TipCompletedEvent {
	return domain.TipCompletedEvent{
		TipID:          uuid.New(),
		StreamerID:     streamerID,
		Donor:          "Ravi",
		Message:        "great stream!",
		Amount:         5000,
		TransferAmount: 4750,
		PaymentID:      "pay_123",
		Timestamp:      time.Now().UTC(),
	}
}

func TestProcessTipCompletedTransfersAndAlerts(t *testing.T) {
	repo := newStubRepository()
	gateway := newStubGateway()
	alerts := &stubAlerts{}
	svc := newTestService(repo, gateway, alerts, newStubHub(), &stubBroker{})
	streamer := seedStreamer(repo)

	svc.ProcessTipCompleted(context.Background(), completedEvent(streamer.ID))

	if gateway.transferCount() != 1 {
		t.Fatalf("transfers = %d, want 1", gateway.transferCount())
	}
	if gateway.transfers[0].Amount != 4750 {
		t.Fatalf("transfer amount = %d, want 4750", gateway.transfers[0].Amount)
	}
	if gateway.transfers[0].Recipient != "acc_streamer1" {
		t.Fatalf("transfer recipient = %q, want acc_streamer1", gateway.transfers[0].Recipient)
	}

	if len(alerts.donations) != 1 {
		t.Fatalf("donations = %d, want 1", len(alerts.donations))
	}
	donation := alerts.donations[0]
	if donation.Amount != "50.00" {
		t.Fatalf("donation amount = %q, want 50.00 rupees", donation.Amount)
	}
	if alerts.tokens[0] != "sl_token_1" {
		t.Fatalf("alert token = %q, want sl_token_1", alerts.tokens[0])
	}
}

func TestProcessTipCompletedSkipsTransferWithoutPayoutAccount(t *testing.T) {
	repo := newStubRepository()
	gateway := newStubGateway()
	alerts := &stubAlerts{}
	svc := newTestService(repo, gateway, alerts, newStubHub(), &stubBroker{})
	streamer := seedStreamer(repo)
	streamer.PayoutAccountID = nil

	svc.ProcessTipCompleted(context.Background(), completedEvent(streamer.ID))

	if gateway.transferCount() != 0 {
		t.Fatalf("transfers = %d, want 0 without payout account", gateway.transferCount())
	}
	if len(alerts.donations) != 1 {
		t.Fatalf("alert should still be pushed without payout account")
	}
}

func TestProcessTipCompletedSkipsAlertWithoutToken(t *testing.T) {
	repo := newStubRepository()
	alerts := &stubAlerts{}
	svc := newTestService(repo, newStubGateway(), alerts, newStubHub(), &stubBroker{})
	streamer := seedStreamer(repo)
	streamer.AlertToken = nil

	svc.ProcessTipCompleted(context.Background(), completedEvent(streamer.ID))

	if len(alerts.donations) != 0 {
		t.Fatalf("alert pushed without a configured token")
	}
}

func TestProcessTipCompletedTransferFailureKeepsTipSettled(t *testing.T) {
	repo := newStubRepository()
	gateway := newStubGateway()
	gateway.transferErr = errors.New("gateway 502")
	alerts := &stubAlerts{}
	svc := newTestService(repo, gateway, alerts, newStubHub(), &stubBroker{})
	streamer := seedStreamer(repo)

	tip := seedPendingTip(repo, streamer.ID, 5000)
	if err := svc.HandleCapture(context.Background(), tip.OrderID, "pay_123", 5000); err != nil {
		t.Fatalf("HandleCapture: %v", err)
	}

	svc.ProcessTipCompleted(context.Background(), completedEvent(streamer.ID))

	settled, _ := repo.FindTipByOrderID(context.Background(), tip.OrderID)
	if settled.Status != domain.TipStatusCompleted {
		t.Fatalf("transfer failure changed tip status to %q", settled.Status)
	}
	if len(alerts.donations) != 1 {
		t.Fatalf("transfer failure suppressed the alert push")
	}
}

func TestHandleTipCompletedMessage(t *testing.T) {
	repo := newStubRepository()
	gateway := newStubGateway()
	svc := newTestService(repo, gateway, &stubAlerts{}, newStubHub(), &stubBroker{})
	streamer := seedStreamer(repo)

	body, err := json.Marshal(completedEvent(streamer.ID))
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if !svc.HandleTipCompletedMessage(body) {
		t.Fatal("valid delivery should be acked")
	}
	if gateway.transferCount() != 1 {
		t.Fatalf("transfers = %d, want 1", gateway.transferCount())
	}
}

func TestHandleTipCompletedMessageMalformed(t *testing.T) {
	repo := newStubRepository()
	gateway := newStubGateway()
	svc := newTestService(repo, gateway, &stubAlerts{}, newStubHub(), &stubBroker{})

	if !svc.HandleTipCompletedMessage([]byte("{not json")) {
		t.Fatal("malformed delivery should be acked and dropped, not requeued")
	}
	if gateway.transferCount() != 0 {
		t.Fatalf("malformed delivery triggered a transfer")
	}
}
