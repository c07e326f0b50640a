package eth

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// Hardhat/Anvil account 0 (test-only key).
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	expected := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if !strings.EqualFold(signer.Address(), expected) {
		t.Errorf("Wrong address: got %s, want %s", signer.Address(), expected)
	}
}

func TestNewSignerNoPrefix(t *testing.T) {
	signer, err := NewSigner(strings.TrimPrefix(testPrivateKey, "0x"))
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	if signer.Address() == "" {
		t.Error("Address should not be empty")
	}
}

func TestNewSignerInvalidKey(t *testing.T) {
	if _, err := NewSigner("not-a-key"); err == nil {
		t.Error("Expected error for invalid key")
	}
}

func TestSignOrder(t *testing.T) {
	signer, _ := NewSigner(testPrivateKey)

	order := &Order{
		Salt:          big.NewInt(123456789),
		Maker:         signer.address,
		Signer:        signer.address,
		Taker:         common.Address{},
		TokenID:       big.NewInt(12345),
		MakerAmount:   big.NewInt(50000000),
		TakerAmount:   big.NewInt(100000000),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          0,
		SignatureType: 0,
	}

	sig, err := signer.SignOrder(137, order, false)
	if err != nil {
		t.Fatalf("SignOrder failed: %v", err)
	}

	if !strings.HasPrefix(sig, "0x") {
		t.Error("Signature should have 0x prefix")
	}

	// 65-byte signature: 0x + 130 hex chars
	if len(sig) != 132 {
		t.Errorf("Wrong signature length: %d (expected 132)", len(sig))
	}
}

func TestSignOrderNegRiskDiffers(t *testing.T) {
	signer, _ := NewSigner(testPrivateKey)

	order := &Order{
		Salt:          big.NewInt(1),
		Maker:         signer.address,
		Signer:        signer.address,
		TokenID:       big.NewInt(1),
		MakerAmount:   big.NewInt(1),
		TakerAmount:   big.NewInt(1),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
	}

	std, err := signer.SignOrder(137, order, false)
	if err != nil {
		t.Fatalf("SignOrder failed: %v", err)
	}
	neg, err := signer.SignOrder(137, order, true)
	if err != nil {
		t.Fatalf("SignOrder (neg-risk) failed: %v", err)
	}

	if std == neg {
		t.Error("Neg-risk domain should produce a different signature")
	}
}

func TestSignAuth(t *testing.T) {
	signer, _ := NewSigner(testPrivateKey)

	sig, err := signer.SignAuth(137, "1700000000", big.NewInt(0))
	if err != nil {
		t.Fatalf("SignAuth failed: %v", err)
	}

	if len(sig) != 132 {
		t.Errorf("Wrong signature length: %d (expected 132)", len(sig))
	}
}

func TestRequestSignerHeaders(t *testing.T) {
	rs := NewRequestSigner(&Credentials{
		APIKey:     "test-key",
		Secret:     "dGVzdC1zZWNyZXQ=", // base64("test-secret")
		Passphrase: "test-pass",
	})

	headers, err := rs.Headers("1700000000", "GET", "/orders", nil, "0xabc")
	if err != nil {
		t.Fatalf("Headers failed: %v", err)
	}

	for _, k := range []string{"POLY_ADDRESS", "POLY_SIGNATURE", "POLY_TIMESTAMP", "POLY_API_KEY", "POLY_PASSPHRASE"} {
		if headers[k] == "" {
			t.Errorf("Missing header %s", k)
		}
	}

	if headers["POLY_ADDRESS"] != "0xabc" {
		t.Errorf("Wrong address header: %s", headers["POLY_ADDRESS"])
	}
}

func TestRequestSignerBodyChangesSignature(t *testing.T) {
	rs := NewRequestSigner(&Credentials{
		APIKey:     "test-key",
		Secret:     "dGVzdC1zZWNyZXQ=",
		Passphrase: "test-pass",
	})

	without, _ := rs.Headers("1700000000", "POST", "/order", nil, "0xabc")
	with, _ := rs.Headers("1700000000", "POST", "/order", []byte(`{"a":1}`), "0xabc")

	if without["POLY_SIGNATURE"] == with["POLY_SIGNATURE"] {
		t.Error("Body should be part of the signed message")
	}
}

func TestRequestSignerBadSecret(t *testing.T) {
	rs := NewRequestSigner(&Credentials{APIKey: "k", Secret: "%%%not-base64%%%", Passphrase: "p"})
	if _, err := rs.Headers("1700000000", "GET", "/orders", nil, "0xabc"); err == nil {
		t.Error("Expected error for undecodable secret")
	}
}
