// Package polymarket provides agent-callable tools over the Polymarket
// Gamma and CLOB APIs. Tools normalize the loosely-typed upstream
// payloads into a stable JSON shape; defaults are substituted at this
// boundary instead of letting absence leak through.
package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/gamma"
)

// unknownLabel substitutes for outcome/market labels the API omits.
const unknownLabel = "Unknown"

// Market is the normalized market entity.
type Market struct {
	ConditionID string  `json:"condition_id"`
	Question    string  `json:"question"`
	Tokens      []Token `json:"tokens"`
	Volume      string  `json:"volume"`
	EndDate     string  `json:"end_date"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
}

// Token pairs a token id with its outcome label and probability price.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// marketFromGamma builds the normalized entity from a raw listing row.
// Outcomes, prices, and token ids are independently-encoded parallel
// arrays; they are zipped by position, substituting zero/empty for
// missing trailing entries. Never fails.
func marketFromGamma(m *gamma.Market) Market {
	tokens := make([]Token, len(m.Outcomes))
	for i, outcome := range m.Outcomes {
		token := Token{Outcome: outcome}
		if i < len(m.ClobTokenIDs) {
			token.TokenID = m.ClobTokenIDs[i]
		}
		if i < len(m.OutcomePrices) {
			if price, err := strconv.ParseFloat(m.OutcomePrices[i], 64); err == nil {
				token.Price = price
			}
		}
		tokens[i] = token
	}

	volume := m.Volume.String()
	if volume == "" {
		volume = "0"
	}

	return Market{
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Tokens:      tokens,
		Volume:      volume,
		EndDate:     m.EndDate,
		Active:      m.Active,
		Closed:      m.Closed,
	}
}

// Position summarizes the user's exposure to one token. It carries the
// price/size of the first open order seen for that token; later orders
// on the same token only appear in the flat open_orders list.
type Position struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Market  string `json:"market"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

// OrderInfo is one normalized open order.
type OrderInfo struct {
	ID           string `json:"id"`
	TokenID      string `json:"token_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Outcome      string `json:"outcome"`
	Market       string `json:"market"`
	Status       string `json:"status"`
}

// positionsFromOrders derives the first-seen-wins position summary plus
// the flat open-order list. Both come back as empty slices (not nil) for
// an empty order set.
func positionsFromOrders(orders []clob.OpenOrder) ([]Position, []OrderInfo) {
	positions := make([]Position, 0, len(orders))
	infos := make([]OrderInfo, 0, len(orders))
	seen := make(map[string]bool, len(orders))

	for _, o := range orders {
		outcome := o.Outcome
		if outcome == "" {
			outcome = unknownLabel
		}
		market := o.Market
		if market == "" {
			market = unknownLabel
		}

		infos = append(infos, OrderInfo{
			ID:           o.ID,
			TokenID:      o.TokenID,
			Side:         string(o.Side),
			Price:        o.Price,
			OriginalSize: o.OriginalSize,
			SizeMatched:  o.SizeMatched,
			Outcome:      outcome,
			Market:       market,
			Status:       o.Status,
		})

		if !seen[o.TokenID] {
			seen[o.TokenID] = true
			positions = append(positions, Position{
				TokenID: o.TokenID,
				Outcome: outcome,
				Market:  market,
				Side:    string(o.Side),
				Price:   o.Price,
				Size:    o.OriginalSize,
			})
		}
	}

	return positions, infos
}

// TradeInfo is one normalized trade-history row.
type TradeInfo struct {
	ID        string `json:"id"`
	TokenID   string `json:"token_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// tradeTimestamp prefers match_time, falls back to last_update, and
// defaults to "" when neither is present.
func tradeTimestamp(t *clob.Trade) string {
	if t.MatchTime != "" {
		return t.MatchTime
	}
	return t.LastUpdate
}

func tradeFromCLOB(t *clob.Trade) TradeInfo {
	return TradeInfo{
		ID:        t.ID,
		TokenID:   t.TokenID,
		Side:      string(t.Side),
		Price:     t.Price,
		Size:      t.Size,
		Timestamp: tradeTimestamp(t),
		Status:    t.Status,
	}
}

// orZero substitutes "0" for a field the API omitted.
func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// parseInput decodes a tool's raw input; absent input decodes the zero
// value so tools without required parameters accept an empty call.
func parseInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	return nil
}
