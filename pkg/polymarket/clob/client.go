package clob

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/forecastlab/polymarket-tools/pkg/eth"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Taker of the zero address means anyone can fill the order.
const publicTaker = "0x0000000000000000000000000000000000000000"

// Client is a CLOB API client. Public market-data routes work with any
// client; authenticated routes require L2 credentials.
type Client struct {
	baseURL    string
	chainID    int64
	signer     *eth.Signer
	reqSigner  *eth.RequestSigner
	creds      *eth.Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	sigType    int    // 0=EOA, 1=PolyProxy, 2=GnosisSafe
	funder     string // settlement address, defaults to the signer address
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithChainID sets the chain ID used in order signatures.
func WithChainID(chainID int64) Option {
	return func(c *Client) {
		c.chainID = chainID
	}
}

// WithCredentials sets L2 API credentials.
func WithCredentials(creds *eth.Credentials) Option {
	return func(c *Client) {
		c.creds = creds
		c.reqSigner = eth.NewRequestSigner(creds)
	}
}

// WithSignatureType sets the signature type (0=EOA, 1=PolyProxy, 2=GnosisSafe).
func WithSignatureType(sigType int) Option {
	return func(c *Client) {
		c.sigType = sigType
	}
}

// WithFunder sets the funder address for proxy-wallet setups.
func WithFunder(funder string) Option {
	return func(c *Client) {
		c.funder = funder
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a CLOB client from a hex-encoded private key.
func NewClient(privateKey string, opts ...Option) (*Client, error) {
	signer, err := eth.NewSigner(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		chainID: ChainIDPolygon,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.funder == "" {
		c.funder = signer.Address()
	}

	return c, nil
}

// Address returns the signing key's address.
func (c *Client) Address() string {
	return c.signer.Address()
}

// Funder returns the settlement address.
func (c *Client) Funder() string {
	return c.funder
}

// HasCredentials reports whether L2 credentials are set.
func (c *Client) HasCredentials() bool {
	return c.creds != nil
}

// --- L1 authentication ---

// CreateOrDeriveAPIKey derives existing L2 credentials, creating new ones
// if none exist yet.
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context) (*eth.Credentials, error) {
	creds, err := c.authRequest(ctx, "GET", "/auth/derive-api-key")
	if err == nil {
		return creds, nil
	}
	return c.authRequest(ctx, "POST", "/auth/api-key")
}

func (c *Client) authRequest(ctx context.Context, method, path string) (*eth.Credentials, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature, err := c.signer.SignAuth(c.chainID, timestamp, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("sign auth: %w", err)
	}

	headers := eth.L1Headers(c.signer.Address(), signature, timestamp, 0)

	var creds eth.Credentials
	if method == "POST" {
		err = c.post(ctx, path, headers, nil, &creds)
	} else {
		err = c.get(ctx, path, headers, nil, &creds)
	}
	if err != nil {
		return nil, err
	}

	c.creds = &creds
	c.reqSigner = eth.NewRequestSigner(&creds)
	return &creds, nil
}

// --- Public routes ---

// GetOrderBook fetches the order book for a token. A side missing from
// the response comes back as an empty slice, never nil.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*BookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var book BookSnapshot
	if err := c.get(ctx, "/book", nil, params, &book); err != nil {
		return nil, err
	}
	if book.Bids == nil {
		book.Bids = []Level{}
	}
	if book.Asks == nil {
		book.Asks = []Level{}
	}
	return &book, nil
}

// GetTickSize fetches the minimum price increment for a token's market.
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (string, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var result struct {
		MinimumTickSize json.Number `json:"minimum_tick_size"`
	}
	if err := c.get(ctx, "/tick-size", nil, params, &result); err != nil {
		return "", err
	}
	return result.MinimumTickSize.String(), nil
}

// GetNegRisk reports whether a token belongs to a negative-risk market.
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var result struct {
		NegRisk bool `json:"neg_risk"`
	}
	if err := c.get(ctx, "/neg-risk", nil, params, &result); err != nil {
		return false, err
	}
	return result.NegRisk, nil
}

// --- L2 authenticated routes ---

// GetBalanceAllowance fetches the funder's collateral balance and
// exchange allowance.
func (c *Client) GetBalanceAllowance(ctx context.Context) (*BalanceAllowance, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("L2 credentials required")
	}

	headers, err := c.l2Headers("GET", "/balance-allowance", nil)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("asset_type", "COLLATERAL")
	params.Set("signature_type", strconv.Itoa(c.sigType))

	var result BalanceAllowance
	if err := c.get(ctx, "/balance-allowance", headers, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOpenOrders fetches the user's resting orders.
func (c *Client) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("L2 credentials required")
	}

	headers, err := c.l2Headers("GET", "/orders", nil)
	if err != nil {
		return nil, err
	}

	var orders []OpenOrder
	if err := c.get(ctx, "/orders", headers, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetTrades fetches the user's trade history.
func (c *Client) GetTrades(ctx context.Context) ([]Trade, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("L2 credentials required")
	}

	headers, err := c.l2Headers("GET", "/trades", nil)
	if err != nil {
		return nil, err
	}

	var trades []Trade
	if err := c.get(ctx, "/trades", headers, nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// --- Order building and submission ---

// BuildOrder assembles the order payload. Amounts are converted to
// micro-USDC / micro-share integers (both sides use 6 decimals).
func (c *Client) BuildOrder(args *OrderArgs) (*OrderPayload, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}

	price := decimal.NewFromFloat(args.Price)
	size := decimal.NewFromFloat(args.Size)
	quote := price.Mul(size).Shift(6).Round(0) // collateral leg
	base := size.Shift(6).Round(0)             // share leg

	var makerAmount, takerAmount string
	if args.Side == OrderSideBuy {
		makerAmount, takerAmount = quote.String(), base.String()
	} else {
		makerAmount, takerAmount = base.String(), quote.String()
	}

	expiration := "0"
	if args.Expiration > 0 {
		expiration = strconv.FormatInt(args.Expiration, 10)
	}

	return &OrderPayload{
		Salt:          salt,
		Maker:         c.funder,
		Signer:        c.signer.Address(),
		Taker:         publicTaker,
		TokenID:       args.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    expiration,
		Nonce:         "0",
		FeeRateBps:    strconv.FormatInt(args.FeeRateBps, 10),
		Side:          string(args.Side),
		SignatureType: c.sigType,
	}, nil
}

// SignOrder signs an order payload for the appropriate exchange domain.
func (c *Client) SignOrder(order *OrderPayload, negRisk bool) (string, error) {
	salt, ok := new(big.Int).SetString(order.Salt, 10)
	if !ok {
		return "", fmt.Errorf("invalid salt: %s", order.Salt)
	}
	tokenID, ok := new(big.Int).SetString(order.TokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token id: %s", order.TokenID)
	}
	makerAmount, _ := new(big.Int).SetString(order.MakerAmount, 10)
	takerAmount, _ := new(big.Int).SetString(order.TakerAmount, 10)
	expiration, _ := new(big.Int).SetString(order.Expiration, 10)
	nonce, _ := new(big.Int).SetString(order.Nonce, 10)
	feeRateBps, _ := new(big.Int).SetString(order.FeeRateBps, 10)

	var side uint8
	if order.Side == string(OrderSideSell) {
		side = 1
	}

	return c.signer.SignOrder(c.chainID, &eth.Order{
		Salt:          salt,
		Maker:         common.HexToAddress(order.Maker),
		Signer:        common.HexToAddress(order.Signer),
		Taker:         common.HexToAddress(order.Taker),
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    expiration,
		Nonce:         nonce,
		FeeRateBps:    feeRateBps,
		Side:          side,
		SignatureType: uint8(order.SignatureType),
	}, negRisk)
}

// PlaceOrder builds, signs, and posts an order in one pass. The exchange
// response is returned as-is, including business-level rejections. The
// submission is never retried.
func (c *Client) PlaceOrder(ctx context.Context, args *OrderArgs, negRisk bool) (*PlaceOrderResponse, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("L2 credentials required")
	}

	order, err := c.BuildOrder(args)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	signature, err := c.SignOrder(order, negRisk)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	orderType := args.OrderType
	if orderType == "" {
		orderType = OrderTypeGTC
	}

	body, err := json.Marshal(&SignedOrder{
		Order:     *order,
		Signature: signature,
		Owner:     c.funder,
		OrderType: orderType,
	})
	if err != nil {
		return nil, err
	}

	headers, err := c.l2Headers("POST", "/order", body)
	if err != nil {
		return nil, err
	}

	var resp PlaceOrderResponse
	if err := c.post(ctx, "/order", headers, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelOrder cancels a single order and returns the raw cancellation
// payload. A transport failure is an error; a per-order refusal is
// reported inside the payload.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("L2 credentials required")
	}

	body, err := json.Marshal([]string{orderID})
	if err != nil {
		return nil, err
	}

	headers, err := c.l2Headers("DELETE", "/orders", body)
	if err != nil {
		return nil, err
	}

	var resp CancelResponse
	if err := c.request(ctx, "DELETE", "/orders", headers, nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- internals ---

func (c *Client) l2Headers(method, path string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	return c.reqSigner.Headers(timestamp, method, path, body, c.funder)
}

func (c *Client) get(ctx context.Context, path string, headers map[string]string, params url.Values, result interface{}) error {
	return c.request(ctx, "GET", path, headers, params, nil, result)
}

func (c *Client) post(ctx context.Context, path string, headers map[string]string, body []byte, result interface{}) error {
	return c.request(ctx, "POST", path, headers, nil, body, result)
}

func (c *Client) request(ctx context.Context, method, path string, headers map[string]string, params url.Values, body []byte, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func newSalt() (string, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}
