package clob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMarketStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stream test in short mode")
	}

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("Failed to read subscribe: %v", err)
			return
		}
		if sub["channel"] != "market" {
			t.Errorf("Wrong channel: %v", sub["channel"])
		}

		// Batched frame: snapshot plus a level change.
		conn.WriteMessage(websocket.TextMessage, []byte(`[
			{"event_type": "book", "asset_id": "token1", "market": "0xmkt",
			 "bids": [{"price": "0.50", "size": "100"}], "asks": [{"price": "0.52", "size": "80"}]},
			{"event_type": "price_change", "asset_id": "token1", "price": "0.51", "size": "60", "side": "SELL"}
		]`))

		// Single frame.
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event_type": "last_trade_price", "asset_id": "token1", "price": "0.50", "size": "25", "side": "BUY"}`))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	books := make(chan BookEvent, 1)
	changes := make(chan PriceChangeEvent, 1)
	trades := make(chan LastTradeEvent, 1)

	stream := NewMarketStream(url, []string{"token1"}, StreamHandlers{
		OnBook:        func(e BookEvent) { books <- e },
		OnPriceChange: func(e PriceChangeEvent) { changes <- e },
		OnLastTrade:   func(e LastTradeEvent) { trades <- e },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	select {
	case e := <-books:
		if e.TokenID != "token1" || len(e.Bids) != 1 || e.Bids[0].Price != "0.50" {
			t.Errorf("Wrong book event: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for book event")
	}

	select {
	case e := <-changes:
		if e.Price != "0.51" || e.Side != "SELL" {
			t.Errorf("Wrong price change: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for price change")
	}

	select {
	case e := <-trades:
		if e.Price != "0.50" || e.Size != "25" {
			t.Errorf("Wrong trade event: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for trade event")
	}
}

func TestMarketStreamIgnoresUnknownEvents(t *testing.T) {
	s := NewMarketStream("", nil, StreamHandlers{})

	// Must not panic on garbage or unknown event types.
	s.handleMessage([]byte(`not json`))
	s.handleMessage([]byte(`{"event_type": "mystery"}`))
	s.handleMessage([]byte(`[{"event_type": "book"}]`))
}
