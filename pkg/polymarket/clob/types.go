// Package clob provides a client for the Polymarket CLOB (Central Limit
// Order Book) API: order books, balances, open orders, trade history, and
// signed order placement.
package clob

import (
	"errors"
	"fmt"
)

const (
	// DefaultBaseURL is the CLOB API base URL
	DefaultBaseURL = "https://clob.polymarket.com"

	// ChainIDPolygon is the chain ID for Polygon mainnet
	ChainIDPolygon = 137
)

// OrderSide is the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the time-in-force of an order.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good Till Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill Or Kill
	OrderTypeGTD OrderType = "GTD" // Good Till Date
)

// Level is one price level of an order book. Price and size are decimal
// strings as delivered by the API; no arithmetic is done on them here.
type Level struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookSnapshot is the order book for one token.
type BookSnapshot struct {
	Market    string  `json:"market"`
	TokenID   string  `json:"asset_id"`
	Hash      string  `json:"hash"`
	Timestamp string  `json:"timestamp"`
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
}

// OpenOrder is a resting order owned by the authenticated user.
type OpenOrder struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Owner        string    `json:"owner"`
	Market       string    `json:"market"`
	TokenID      string    `json:"asset_id"`
	Side         OrderSide `json:"side"`
	Price        string    `json:"price"`
	OriginalSize string    `json:"original_size"`
	SizeMatched  string    `json:"size_matched"`
	Outcome      string    `json:"outcome"`
	Expiration   string    `json:"expiration"`
	OrderType    string    `json:"order_type"`
}

// Trade is an executed trade from the user's history. Timestamps are unix
// second strings; match_time may be absent on older rows.
type Trade struct {
	ID         string    `json:"id"`
	Market     string    `json:"market"`
	TokenID    string    `json:"asset_id"`
	Side       OrderSide `json:"side"`
	Price      string    `json:"price"`
	Size       string    `json:"size"`
	Status     string    `json:"status"`
	MatchTime  string    `json:"match_time"`
	LastUpdate string    `json:"last_update"`
	Outcome    string    `json:"outcome"`
	TradeOwner string    `json:"trader"`
}

// BalanceAllowance is collateral balance and exchange allowance for the
// funder address, in micro-USDC decimal strings.
type BalanceAllowance struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

// OrderArgs are the caller-level arguments for building an order.
type OrderArgs struct {
	TokenID    string
	Side       OrderSide
	Price      float64
	Size       float64
	FeeRateBps int64
	Expiration int64 // unix seconds, 0 = never expires
	OrderType  OrderType
}

// OrderPayload is the order struct as serialized for submission.
type OrderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
}

// SignedOrder is an order plus its EIP-712 signature, ready to post.
type SignedOrder struct {
	Order     OrderPayload `json:"order"`
	Signature string       `json:"signature"`
	Owner     string       `json:"owner"`
	OrderType OrderType    `json:"orderType"`
}

// PlaceOrderResponse is the exchange's answer to a posted order. A
// rejection arrives here as Success=false plus ErrorMsg, not as an HTTP
// error.
type PlaceOrderResponse struct {
	OrderID  string `json:"orderID"`
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// CancelFailure describes why an order could not be cancelled.
type CancelFailure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// CancelResponse is the raw cancellation result payload.
type CancelResponse struct {
	Canceled    []string        `json:"canceled"`
	NotCanceled []CancelFailure `json:"not_canceled,omitempty"`
}

// APIError is a non-2xx response from the CLOB API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
