package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the WebSocket URL for the market channel.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// BookEvent is a full book snapshot pushed on the market channel.
type BookEvent struct {
	TokenID   string  `json:"asset_id"`
	Market    string  `json:"market"`
	Hash      string  `json:"hash"`
	Timestamp string  `json:"timestamp"`
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
}

// PriceChangeEvent is an incremental level change.
type PriceChangeEvent struct {
	TokenID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

// LastTradeEvent is the most recent trade on a token.
type LastTradeEvent struct {
	TokenID string `json:"asset_id"`
	Market  string `json:"market"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

// StreamHandlers are callbacks for market-channel events. Nil handlers
// are skipped.
type StreamHandlers struct {
	OnBook        func(BookEvent)
	OnPriceChange func(PriceChangeEvent)
	OnLastTrade   func(LastTradeEvent)
	OnConnect     func()
	OnError       func(error)
}

// MarketStream subscribes to the public market channel for a fixed set
// of tokens and dispatches events until its context is cancelled. It
// reconnects with exponential backoff and resubscribes on reconnect.
type MarketStream struct {
	url      string
	tokenIDs []string
	handlers StreamHandlers
}

// NewMarketStream creates a market stream for the given token ids.
func NewMarketStream(url string, tokenIDs []string, handlers StreamHandlers) *MarketStream {
	if url == "" {
		url = DefaultStreamURL
	}
	return &MarketStream{url: url, tokenIDs: tokenIDs, handlers: handlers}
}

const (
	streamMinBackoff = time.Second
	streamMaxBackoff = 30 * time.Second
	streamPingEvery  = 30 * time.Second
	streamReadLimit  = 1 << 20
)

// Run connects and processes events until ctx is cancelled. Connection
// failures are reported through OnError and retried; Run only returns
// on cancellation.
func (s *MarketStream) Run(ctx context.Context) {
	backoff := streamMinBackoff

	for {
		if err := s.runOnce(ctx); err != nil && s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > streamMaxBackoff {
			backoff = streamMaxBackoff
		}
	}
}

func (s *MarketStream) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"type":       "subscribe",
		"channel":    "market",
		"assets_ids": s.tokenIDs,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}

	// Close the connection on cancellation to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(streamReadLimit)
	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(data)
	}
}

// handleMessage dispatches one frame, which may batch several events in
// a JSON array.
func (s *MarketStream) handleMessage(data []byte) {
	if len(data) > 0 && data[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(data, &batch); err == nil {
			for _, msg := range batch {
				s.handleEvent(msg)
			}
			return
		}
	}
	s.handleEvent(data)
}

func (s *MarketStream) handleEvent(data []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}

	switch strings.ToLower(envelope.EventType) {
	case "book":
		if s.handlers.OnBook != nil {
			var event BookEvent
			if json.Unmarshal(data, &event) == nil {
				s.handlers.OnBook(event)
			}
		}
	case "price_change":
		if s.handlers.OnPriceChange != nil {
			var event PriceChangeEvent
			if json.Unmarshal(data, &event) == nil {
				s.handlers.OnPriceChange(event)
			}
		}
	case "last_trade_price":
		if s.handlers.OnLastTrade != nil {
			var event LastTradeEvent
			if json.Unmarshal(data, &event) == nil {
				s.handlers.OnLastTrade(event)
			}
		}
	}
}
