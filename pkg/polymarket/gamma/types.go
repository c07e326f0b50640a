// Package gamma provides a client for the Polymarket Gamma Markets API,
// the read-only metadata endpoint for market listings.
package gamma

import (
	"encoding/json"
	"errors"
)

// DefaultBaseURL is the Gamma API base URL
const DefaultBaseURL = "https://gamma-api.polymarket.com"

// ErrNotFound is returned when a market lookup matches nothing. It is the
// caller's cue to report absence rather than failure.
var ErrNotFound = errors.New("market not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Market is a raw market row from the listing endpoint. Outcomes, prices,
// and token ids arrive as parallel arrays whose encoding varies by
// endpoint version, hence the Flex types.
type Market struct {
	ID            string      `json:"id"`
	Question      string      `json:"question"`
	ConditionID   string      `json:"conditionId"`
	Slug          string      `json:"slug"`
	Description   string      `json:"description"`
	EndDate       string      `json:"endDate"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	Archived      bool        `json:"archived"`
	NegRisk       bool        `json:"negRisk"`
	Volume        FlexNumber  `json:"volume"`
	Liquidity     FlexNumber  `json:"liquidity"`
	Outcomes      FlexStrings `json:"outcomes"`
	OutcomePrices FlexStrings `json:"outcomePrices"`
	ClobTokenIDs  FlexStrings `json:"clobTokenIds"`
}

// MarketsFilter holds query parameters for the markets listing.
type MarketsFilter struct {
	Closed      *bool
	ConditionID string
	Limit       int
	Offset      int
}

// FlexStrings decodes a field that is either a native JSON string array
// or a JSON-encoded string containing one ("[\"Yes\",\"No\"]"). Any other
// shape, including a string that fails to parse, decodes to empty rather
// than erroring.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var inner []string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			*f = inner
			return nil
		}
	}

	*f = nil
	return nil
}

// FlexNumber decodes a numeric field that may arrive as a JSON number or
// a decimal string, preserving the decimal-string form. An undecodable
// value becomes "".
type FlexNumber string

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*n = FlexNumber(num.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = FlexNumber(s)
		return nil
	}

	*n = ""
	return nil
}

func (n FlexNumber) String() string {
	return string(n)
}

// BoolPtr returns a pointer to b, for filter fields.
func BoolPtr(b bool) *bool {
	return &b
}
