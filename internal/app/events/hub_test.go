package events

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/pawbank/allowance/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_SubscribeReceivesEvents(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
	}

	h.Publish(domain.Event{Type: domain.EventQuestCompleted, QuestID: "bike-to-school", Balance: 92})

	select {
	case data := <-ch:
		var got domain.Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got.Type != domain.EventQuestCompleted || got.QuestID != "bike-to-school" || got.Balance != 92 {
			t.Errorf("event = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, unsub := h.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*3; i++ {
			h.Publish(domain.Event{Type: domain.EventTransactionAdded})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full client")
	}
}

func TestHub_UnsubscribeTwice(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	unsub()
	unsub()

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
	h.Publish(domain.Event{Type: domain.EventQuestReset})
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	h.Close()
	unsub()

	if _, open := <-ch; open {
		t.Error("Close should close client channels")
	}
	late, _ := h.Subscribe()
	if _, open := <-late; open {
		t.Error("subscribing after Close should yield a closed channel")
	}
}
