// Package eth holds the wallet and signing machinery the CLOB client
// depends on: ECDSA key handling, EIP-712 order and auth signatures, and
// the HMAC request signer for L2 credentials.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// CTF Exchange contracts on Polygon. The neg-risk variant settles
// negative-risk markets and uses its own EIP-712 domain.
var (
	CTFExchange        = common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	NegRiskCTFExchange = common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")
)

// Signer wraps an ECDSA private key and produces the EIP-712 signatures
// the exchange expects for orders and L1 authentication.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex-encoded private key (with or without 0x prefix).
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the signing key's checksummed address.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Order is the EIP-712 order struct hashed for the CTF Exchange.
type Order struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

var orderTypeHash = crypto.Keccak256Hash([]byte(
	"Order(uint256 salt,address maker,address signer,address taker," +
		"uint256 tokenId,uint256 makerAmount,uint256 takerAmount," +
		"uint256 expiration,uint256 nonce,uint256 feeRateBps," +
		"uint8 side,uint8 signatureType)"))

var authTypeHash = crypto.Keccak256Hash([]byte(
	"ClobAuth(address address,string timestamp,uint256 nonce)"))

// SignOrder hashes and signs an order against the exchange domain.
// negRisk selects the neg-risk exchange contract as verifying contract.
func (s *Signer) SignOrder(chainID int64, order *Order, negRisk bool) (string, error) {
	exchange := CTFExchange
	if negRisk {
		exchange = NegRiskCTFExchange
	}

	structHash := crypto.Keccak256Hash(
		orderTypeHash.Bytes(),
		math.U256Bytes(order.Salt),
		common.LeftPadBytes(order.Maker.Bytes(), 32),
		common.LeftPadBytes(order.Signer.Bytes(), 32),
		common.LeftPadBytes(order.Taker.Bytes(), 32),
		math.U256Bytes(order.TokenID),
		math.U256Bytes(order.MakerAmount),
		math.U256Bytes(order.TakerAmount),
		math.U256Bytes(order.Expiration),
		math.U256Bytes(order.Nonce),
		math.U256Bytes(order.FeeRateBps),
		common.LeftPadBytes([]byte{order.Side}, 32),
		common.LeftPadBytes([]byte{order.SignatureType}, 32),
	)

	digest := typedDataDigest(domainHash("CTFExchange", "1", chainID, &exchange), structHash)

	sig, err := s.signDigest(digest)
	if err != nil {
		return "", fmt.Errorf("sign order: %w", err)
	}
	return fmt.Sprintf("0x%x", sig), nil
}

// SignAuth signs the CLOB L1 authentication message used to create or
// derive L2 API credentials.
func (s *Signer) SignAuth(chainID int64, timestamp string, nonce *big.Int) (string, error) {
	structHash := crypto.Keccak256Hash(
		authTypeHash.Bytes(),
		crypto.Keccak256Hash(s.address.Bytes()).Bytes(),
		crypto.Keccak256Hash([]byte(timestamp)).Bytes(),
		common.LeftPadBytes(nonce.Bytes(), 32),
	)

	digest := typedDataDigest(domainHash("ClobAuthDomain", "1", chainID, nil), structHash)

	sig, err := s.signDigest(digest)
	if err != nil {
		return "", fmt.Errorf("sign auth: %w", err)
	}
	return fmt.Sprintf("0x%x", sig), nil
}

func (s *Signer) signDigest(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	// V is 0/1 from crypto.Sign; the exchange expects 27/28.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// domainHash computes the EIP-712 domain separator. A nil contract omits
// the verifyingContract field, as the ClobAuth domain does.
func domainHash(name, version string, chainID int64, contract *common.Address) common.Hash {
	chainIDWord := common.LeftPadBytes(big.NewInt(chainID).Bytes(), 32)

	if contract == nil {
		return crypto.Keccak256Hash(
			crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId)")).Bytes(),
			crypto.Keccak256Hash([]byte(name)).Bytes(),
			crypto.Keccak256Hash([]byte(version)).Bytes(),
			chainIDWord,
		)
	}
	return crypto.Keccak256Hash(
		crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)")).Bytes(),
		crypto.Keccak256Hash([]byte(name)).Bytes(),
		crypto.Keccak256Hash([]byte(version)).Bytes(),
		chainIDWord,
		common.LeftPadBytes(contract.Bytes(), 32),
	)
}

func typedDataDigest(domainSep, structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSep.Bytes(), structHash.Bytes())
}
