package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forecastlab/polymarket-tools/core"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/gamma"
)

const (
	defaultListLimit   = 10
	defaultTradesLimit = 20
	maxLimit           = 100

	// Gamma's closed filter is unreliable, so listings over-fetch by
	// this factor and re-filter client-side. Best effort: a heavily
	// filtered page can still fall short of the requested limit.
	listOverfetch = 3
)

// clampLimit applies the default and the 1..100 bound.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// === list_markets ===

// ListMarketsTool lists open markets, optionally filtered by a search
// string against the market question.
type ListMarketsTool struct {
	gamma *gamma.Client
}

type ListMarketsInput struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Search string `json:"search"`
}

type ListMarketsOutput struct {
	Markets []Market `json:"markets"`
	Count   int      `json:"count"`
}

func NewListMarketsTool(client *gamma.Client) *ListMarketsTool {
	return &ListMarketsTool{gamma: client}
}

func (t *ListMarketsTool) Name() string {
	return "list_markets"
}

func (t *ListMarketsTool) Description() string {
	return "List open prediction markets, optionally filtered by a search string"
}

func (t *ListMarketsTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "description": "Maximum number of markets (1-100, default 10)", "minimum": 1, "maximum": 100},
			"offset": {"type": "integer", "description": "Pagination offset", "minimum": 0},
			"search": {"type": "string", "description": "Free-text filter against the market question"}
		}
	}`)
}

func (t *ListMarketsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in ListMarketsInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	limit := clampLimit(in.Limit, defaultListLimit)
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	raw, err := t.gamma.ListMarkets(ctx, &gamma.MarketsFilter{
		Closed: gamma.BoolPtr(false),
		Limit:  limit * listOverfetch,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list markets failed: %w", err)
	}

	search := strings.ToLower(in.Search)
	markets := make([]Market, 0, limit)
	for _, m := range raw {
		if m.Closed || len(m.ClobTokenIDs) == 0 {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Question), search) {
			continue
		}
		markets = append(markets, marketFromGamma(&m))
		if len(markets) >= limit {
			break
		}
	}

	return ListMarketsOutput{Markets: markets, Count: len(markets)}, nil
}

// === get_market ===

// GetMarketTool fetches one market by condition id. Absence is a normal
// result, distinct from a transport failure.
type GetMarketTool struct {
	gamma *gamma.Client
}

type GetMarketInput struct {
	ConditionID string `json:"condition_id"`
}

type GetMarketOutput struct {
	Found       bool    `json:"found"`
	ConditionID string  `json:"condition_id"`
	Market      *Market `json:"market,omitempty"`
}

func NewGetMarketTool(client *gamma.Client) *GetMarketTool {
	return &GetMarketTool{gamma: client}
}

func (t *GetMarketTool) Name() string {
	return "get_market"
}

func (t *GetMarketTool) Description() string {
	return "Fetch a single market by its condition id"
}

func (t *GetMarketTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"required": ["condition_id"],
		"properties": {
			"condition_id": {"type": "string", "description": "Market condition id"}
		}
	}`)
}

func (t *GetMarketTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in GetMarketInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	if in.ConditionID == "" {
		return nil, &core.MissingParamError{Param: "condition_id"}
	}

	raw, err := t.gamma.GetMarketByConditionID(ctx, in.ConditionID)
	if err != nil {
		if gamma.IsNotFound(err) {
			return GetMarketOutput{Found: false, ConditionID: in.ConditionID}, nil
		}
		return nil, fmt.Errorf("get market failed: %w", err)
	}

	market := marketFromGamma(raw)
	return GetMarketOutput{Found: true, ConditionID: in.ConditionID, Market: &market}, nil
}

// === get_orderbook ===

// GetOrderBookTool fetches the order book for a token. Prices and sizes
// pass through as decimal strings; absent sides become empty arrays.
type GetOrderBookTool struct {
	clob *clob.Client
}

type GetOrderBookInput struct {
	TokenID string `json:"token_id"`
}

type GetOrderBookOutput struct {
	TokenID string       `json:"token_id"`
	Market  string       `json:"market"`
	Bids    []clob.Level `json:"bids"`
	Asks    []clob.Level `json:"asks"`
}

func NewGetOrderBookTool(client *clob.Client) *GetOrderBookTool {
	return &GetOrderBookTool{clob: client}
}

func (t *GetOrderBookTool) Name() string {
	return "get_orderbook"
}

func (t *GetOrderBookTool) Description() string {
	return "Fetch the current order book for a token"
}

func (t *GetOrderBookTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"required": ["token_id"],
		"properties": {
			"token_id": {"type": "string", "description": "Token id of the outcome"}
		}
	}`)
}

func (t *GetOrderBookTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in GetOrderBookInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	if in.TokenID == "" {
		return nil, &core.MissingParamError{Param: "token_id"}
	}

	book, err := t.clob.GetOrderBook(ctx, in.TokenID)
	if err != nil {
		return nil, fmt.Errorf("get orderbook failed: %w", err)
	}

	return GetOrderBookOutput{
		TokenID: in.TokenID,
		Market:  book.Market,
		Bids:    book.Bids,
		Asks:    book.Asks,
	}, nil
}

// === get_balance ===

// GetBalanceTool fetches the funder's collateral balance and allowance.
type GetBalanceTool struct {
	clob *clob.Client
}

type GetBalanceOutput struct {
	Funder    string `json:"funder"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

func NewGetBalanceTool(client *clob.Client) *GetBalanceTool {
	return &GetBalanceTool{clob: client}
}

func (t *GetBalanceTool) Name() string {
	return "get_balance"
}

func (t *GetBalanceTool) Description() string {
	return "Fetch the collateral balance and allowance of the funder address"
}

func (t *GetBalanceTool) InputSchema() []byte {
	return []byte(`{"type": "object", "properties": {}}`)
}

func (t *GetBalanceTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	ba, err := t.clob.GetBalanceAllowance(ctx)
	if err != nil {
		return nil, fmt.Errorf("get balance failed: %w", err)
	}

	return GetBalanceOutput{
		Funder:    t.clob.Funder(),
		Balance:   orZero(ba.Balance),
		Allowance: orZero(ba.Allowance),
	}, nil
}

// === get_positions ===

// GetPositionsTool fetches open orders and derives the per-token
// position summary.
type GetPositionsTool struct {
	clob *clob.Client
}

type GetPositionsOutput struct {
	Positions  []Position  `json:"positions"`
	OpenOrders []OrderInfo `json:"open_orders"`
}

func NewGetPositionsTool(client *clob.Client) *GetPositionsTool {
	return &GetPositionsTool{clob: client}
}

func (t *GetPositionsTool) Name() string {
	return "get_positions"
}

func (t *GetPositionsTool) Description() string {
	return "Fetch open orders and a per-token position summary"
}

func (t *GetPositionsTool) InputSchema() []byte {
	return []byte(`{"type": "object", "properties": {}}`)
}

func (t *GetPositionsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	orders, err := t.clob.GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get open orders failed: %w", err)
	}

	positions, infos := positionsFromOrders(orders)
	return GetPositionsOutput{Positions: positions, OpenOrders: infos}, nil
}

// === get_trades ===

// GetTradesTool fetches the user's trade history. The limit is applied
// client-side; the upstream limit parameter is not relied on.
type GetTradesTool struct {
	clob *clob.Client
}

type GetTradesInput struct {
	Limit int `json:"limit"`
}

type GetTradesOutput struct {
	Trades []TradeInfo `json:"trades"`
	Count  int         `json:"count"`
}

func NewGetTradesTool(client *clob.Client) *GetTradesTool {
	return &GetTradesTool{clob: client}
}

func (t *GetTradesTool) Name() string {
	return "get_trades"
}

func (t *GetTradesTool) Description() string {
	return "Fetch recent trade history"
}

func (t *GetTradesTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "description": "Maximum number of trades (1-100, default 20)", "minimum": 1, "maximum": 100}
		}
	}`)
}

func (t *GetTradesTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in GetTradesInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	limit := clampLimit(in.Limit, defaultTradesLimit)

	raw, err := t.clob.GetTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("get trades failed: %w", err)
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}

	trades := make([]TradeInfo, len(raw))
	for i := range raw {
		trades[i] = tradeFromCLOB(&raw[i])
	}

	return GetTradesOutput{Trades: trades, Count: len(trades)}, nil
}
