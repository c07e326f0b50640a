package eth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
)

// Credentials is the L2 API credential triple issued by the CLOB.
type Credentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// RequestSigner produces the POLY_* header set for L2-authenticated
// requests by HMAC-signing timestamp+method+path+body with the secret.
type RequestSigner struct {
	creds *Credentials
}

// NewRequestSigner creates a request signer for the given credentials.
func NewRequestSigner(creds *Credentials) *RequestSigner {
	return &RequestSigner{creds: creds}
}

// Headers signs one request. The address is the funder whose orders the
// credentials scope to, which may differ from the signing key's address.
func (s *RequestSigner) Headers(timestamp, method, path string, body []byte, address string) (map[string]string, error) {
	message := timestamp + method + path
	if len(body) > 0 {
		message += string(body)
	}

	// Secrets come back base64url-encoded, but older keys used standard
	// encoding; accept both.
	secret, err := base64.URLEncoding.DecodeString(s.creds.Secret)
	if err != nil {
		secret, err = base64.StdEncoding.DecodeString(s.creds.Secret)
		if err != nil {
			return nil, fmt.Errorf("decode secret: %w", err)
		}
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_SIGNATURE":  signature,
		"POLY_TIMESTAMP":  timestamp,
		"POLY_API_KEY":    s.creds.APIKey,
		"POLY_PASSPHRASE": s.creds.Passphrase,
	}, nil
}

// L1Headers returns the header set for L1 (EIP-712) authenticated
// requests such as credential creation.
func L1Headers(address, signature, timestamp string, nonce int64) map[string]string {
	return map[string]string{
		"POLY_ADDRESS":   address,
		"POLY_SIGNATURE": signature,
		"POLY_TIMESTAMP": timestamp,
		"POLY_NONCE":     strconv.FormatInt(nonce, 10),
	}
}
