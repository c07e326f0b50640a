package polymarket

import (
	"github.com/forecastlab/polymarket-tools/core"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"

	"github.com/shopspring/decimal"
)

// Exchange business rules enforced before anything leaves this process:
// the minimum tradable size, and price as a probability strictly inside
// (0, 1). The exchange would also reject, but known-invalid requests must
// never reach the signer.
var (
	minOrderSize = decimal.NewFromInt(5)
	maxPrice     = decimal.NewFromInt(1)
)

// validateOrder checks a place-order input and returns the parsed side,
// size, and price. Runs strictly before any network call; a failure here
// prevents the signing step entirely.
func validateOrder(in *PlaceOrderInput) (clob.OrderSide, decimal.Decimal, decimal.Decimal, error) {
	if in.TokenID == "" {
		return "", decimal.Zero, decimal.Zero, &core.MissingParamError{Param: "token_id"}
	}

	side := clob.OrderSide(in.Side)
	if side != clob.OrderSideBuy && side != clob.OrderSideSell {
		return "", decimal.Zero, decimal.Zero, &core.MissingParamError{Param: "side (BUY or SELL)"}
	}

	size, err := decimal.NewFromString(in.Size)
	if err != nil || size.LessThan(minOrderSize) {
		return "", decimal.Zero, decimal.Zero, &core.InvalidParamError{
			Param:  "size",
			Reason: "size must be at least 5",
		}
	}

	price, err := decimal.NewFromString(in.Price)
	if err != nil || !price.GreaterThan(decimal.Zero) || !price.LessThan(maxPrice) {
		return "", decimal.Zero, decimal.Zero, &core.InvalidParamError{
			Param:  "price",
			Reason: "price must be between 0 and 1 (exclusive)",
		}
	}

	return side, size, price, nil
}

// validateCancel checks a cancel-order input.
func validateCancel(in *CancelOrderInput) error {
	if in.OrderID == "" {
		return &core.MissingParamError{Param: "order_id"}
	}
	return nil
}
