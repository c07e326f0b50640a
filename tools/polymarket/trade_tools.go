package polymarket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forecastlab/polymarket-tools/core"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/gamma"
)

// Fallbacks when the tick-size/neg-risk lookup fails. Metadata
// unavailability must not block trading.
const (
	defaultTickSize = "0.01"
	defaultNegRisk  = false
)

// === place_order ===

// PlaceOrderTool validates, signs, and submits one limit order. The
// pipeline is linear with no retries: a duplicate submission is worse
// than a missed one.
type PlaceOrderTool struct {
	clob *clob.Client
}

type PlaceOrderInput struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side"`  // BUY or SELL
	Size    string `json:"size"`  // decimal string, >= 5
	Price   string `json:"price"` // decimal string, 0 < p < 1
}

// OrderEcho repeats the normalized order parameters in the result.
type OrderEcho struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side"`
	Size    string `json:"size"`
	Price   string `json:"price"`
}

// PlaceOrderOutput carries the exchange's answer as-is: an empty
// order_id or an error message is a business-level rejection for the
// caller to interpret, not a tool failure.
type PlaceOrderOutput struct {
	OrderID  string    `json:"order_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Order    OrderEcho `json:"order"`
	TickSize string    `json:"tick_size"`
	NegRisk  bool      `json:"neg_risk"`
}

func NewPlaceOrderTool(client *clob.Client) *PlaceOrderTool {
	return &PlaceOrderTool{clob: client}
}

func (t *PlaceOrderTool) Name() string {
	return "place_order"
}

func (t *PlaceOrderTool) Description() string {
	return "Place a signed limit order on the exchange"
}

func (t *PlaceOrderTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"required": ["token_id", "side", "size", "price"],
		"properties": {
			"token_id": {"type": "string", "description": "Token id to trade"},
			"side": {"type": "string", "enum": ["BUY", "SELL"], "description": "Order side"},
			"size": {"type": "string", "description": "Order size as a decimal string, minimum 5"},
			"price": {"type": "string", "description": "Limit price as a decimal string, between 0 and 1 exclusive"}
		}
	}`)
}

// Execute runs the submission pipeline:
// validate -> fetch market metadata -> build/sign/submit -> normalize.
func (t *PlaceOrderTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in PlaceOrderInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	side, size, price, err := validateOrder(&in)
	if err != nil {
		return nil, err
	}

	// Best-effort metadata; trading proceeds on defaults when the
	// lookup fails.
	tickSize, err := t.clob.GetTickSize(ctx, in.TokenID)
	if err != nil || tickSize == "" {
		tickSize = defaultTickSize
	}
	negRisk, err := t.clob.GetNegRisk(ctx, in.TokenID)
	if err != nil {
		negRisk = defaultNegRisk
	}

	resp, err := t.clob.PlaceOrder(ctx, &clob.OrderArgs{
		TokenID:    in.TokenID,
		Side:       side,
		Size:       size.InexactFloat64(),
		Price:      price.InexactFloat64(),
		FeeRateBps: 0,
	}, negRisk)
	if err != nil {
		return nil, fmt.Errorf("place order failed: %w", err)
	}

	return PlaceOrderOutput{
		OrderID: resp.OrderID,
		Status:  resp.Status,
		Error:   resp.ErrorMsg,
		Order: OrderEcho{
			TokenID: in.TokenID,
			Side:    string(side),
			Size:    size.String(),
			Price:   price.String(),
		},
		TickSize: tickSize,
		NegRisk:  negRisk,
	}, nil
}

// === cancel_order ===

// CancelOrderTool cancels one open order.
type CancelOrderTool struct {
	clob *clob.Client
}

type CancelOrderInput struct {
	OrderID string `json:"order_id"`
}

// CancelOrderOutput includes the raw upstream payload for transparency.
type CancelOrderOutput struct {
	Status   string               `json:"status"`
	OrderID  string               `json:"order_id"`
	Response *clob.CancelResponse `json:"response"`
}

func NewCancelOrderTool(client *clob.Client) *CancelOrderTool {
	return &CancelOrderTool{clob: client}
}

func (t *CancelOrderTool) Name() string {
	return "cancel_order"
}

func (t *CancelOrderTool) Description() string {
	return "Cancel an open order by id"
}

func (t *CancelOrderTool) InputSchema() []byte {
	return []byte(`{
		"type": "object",
		"required": ["order_id"],
		"properties": {
			"order_id": {"type": "string", "description": "Order id to cancel"}
		}
	}`)
}

func (t *CancelOrderTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var in CancelOrderInput
	if err := parseInput(input, &in); err != nil {
		return nil, err
	}

	if err := validateCancel(&in); err != nil {
		return nil, err
	}

	resp, err := t.clob.CancelOrder(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("cancel order failed: %w", err)
	}

	return CancelOrderOutput{
		Status:   "cancelled",
		OrderID:  in.OrderID,
		Response: resp,
	}, nil
}

// === Registration ===

// RegisterMarketTools registers the read-only operations.
func RegisterMarketTools(registry *core.Registry, gammaClient *gamma.Client, clobClient *clob.Client) {
	registry.Register(NewListMarketsTool(gammaClient), core.RiskReadOnly)
	registry.Register(NewGetMarketTool(gammaClient), core.RiskReadOnly)
	registry.Register(NewGetOrderBookTool(clobClient), core.RiskReadOnly)
	registry.Register(NewGetBalanceTool(clobClient), core.RiskReadOnly)
	registry.Register(NewGetPositionsTool(clobClient), core.RiskReadOnly)
	registry.Register(NewGetTradesTool(clobClient), core.RiskReadOnly)
}

// RegisterTradingTools registers the state-changing operations. A
// read-only registry drops them at registration time.
func RegisterTradingTools(registry *core.Registry, clobClient *clob.Client) {
	registry.Register(NewPlaceOrderTool(clobClient), core.RiskTrading)
	registry.Register(NewCancelOrderTool(clobClient), core.RiskTrading)
}

// RegisterAllTools registers every tool.
func RegisterAllTools(registry *core.Registry, gammaClient *gamma.Client, clobClient *clob.Client) {
	RegisterMarketTools(registry, gammaClient, clobClient)
	RegisterTradingTools(registry, clobClient)
}
