package streaming

import (
	"strings"
	"testing"
	"time"
)

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d clients, have %d", want, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	fast := &Client{hub: h, send: make(chan []byte, 16), subscriptions: map[EventType]bool{EventTypeStatus: true}}
	slow := &Client{hub: h, send: make(chan []byte, 1), subscriptions: map[EventType]bool{EventTypeStatus: true}}
	h.register <- fast
	h.register <- slow
	waitForCount(t, h, 2)

	// Count reads must stay safe while broadcasts evict clients.
	counted := make(chan struct{})
	go func() {
		defer close(counted)
		for i := 0; i < 200; i++ {
			h.ClientCount()
		}
	}()

	for i := 0; i < 5; i++ {
		h.Broadcast(Event{Type: EventTypeStatus, Data: i})
	}
	<-counted

	// The one-slot client overflows on the second event and is dropped.
	waitForCount(t, h, 1)

	select {
	case msg := <-fast.send:
		if len(msg) == 0 {
			t.Error("Empty broadcast payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fast client should still receive broadcasts")
	}
}

func TestHubSubscriptionFilter(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 16), subscriptions: map[EventType]bool{EventTypeOrder: true}}
	h.register <- client
	waitForCount(t, h, 1)

	h.Broadcast(Event{Type: EventTypeStatus, Data: "ignored"})
	h.Broadcast(Event{Type: EventTypeOrder, Data: "wanted"})

	select {
	case msg := <-client.send:
		if !strings.Contains(string(msg), "wanted") {
			t.Errorf("Wrong event delivered: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for subscribed event")
	}

	select {
	case msg := <-client.send:
		t.Errorf("Unsubscribed event delivered: %s", msg)
	default:
	}
}
