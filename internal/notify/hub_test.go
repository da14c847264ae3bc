package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/domain"
)

func TestHub_PublishReachesAllTopicSubscribers(t *testing.T) {
	hub := NewHub()
	streamerID := uuid.New()

	ch1, cancel1 := hub.Subscribe(streamerID)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(streamerID)
	defer cancel2()

	hub.Publish(streamerID, domain.OverlayEvent{Kind: domain.EventKindNewTip})

	for i, ch := range []<-chan domain.OverlayEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Kind != domain.EventKindNewTip {
				t.Fatalf("subscriber %d: expected new_tip, got %q", i, ev.Kind)
			}
		default:
			t.Fatalf("subscriber %d: expected a buffered event", i)
		}
	}
}

func TestHub_PublishIsScopedToTopic(t *testing.T) {
	hub := NewHub()
	target := uuid.New()
	other := uuid.New()

	targetCh, cancelTarget := hub.Subscribe(target)
	defer cancelTarget()
	otherCh, cancelOther := hub.Subscribe(other)
	defer cancelOther()

	hub.Publish(target, domain.OverlayEvent{Kind: domain.EventKindNewTip})

	select {
	case <-targetCh:
	default:
		t.Fatal("expected target subscriber to receive the event")
	}
	select {
	case ev := <-otherCh:
		t.Fatalf("unexpected event %q on unrelated topic", ev.Kind)
	default:
	}
}

func TestHub_CancelStopsDeliveryAndClosesChannel(t *testing.T) {
	hub := NewHub()
	streamerID := uuid.New()

	ch, cancel := hub.Subscribe(streamerID)
	cancel()

	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after cancel")
	}
	if n := hub.SubscriberCount(streamerID); n != 0 {
		t.Fatalf("expected empty topic after cancel, got %d subscribers", n)
	}

	// Publishing to an empty topic must not panic.
	hub.Publish(streamerID, domain.OverlayEvent{Kind: domain.EventKindNewTip})
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	streamerID := uuid.New()

	_, cancel := hub.Subscribe(streamerID)
	cancel()
	cancel()
}

func TestHub_SlowSubscriberDropsEventsWithoutBlocking(t *testing.T) {
	hub := NewHub()
	streamerID := uuid.New()

	ch, cancel := hub.Subscribe(streamerID)
	defer cancel()

	// Overfill the buffer; the hub must drop rather than block.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(streamerID, domain.OverlayEvent{Kind: domain.EventKindNewTip})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Fatalf("expected exactly %d buffered events, got %d", subscriberBuffer, received)
	}
}
