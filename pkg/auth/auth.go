// Package auth holds signing credentials for the exchange: the EOA signer,
// derived API credentials, and smart-contract-wallet address derivation.
package auth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureType selects which wallet the order maker funds come from.
type SignatureType int

const (
	SignatureEOA        SignatureType = 0
	SignatureProxy      SignatureType = 1
	SignatureGnosisSafe SignatureType = 2
)

// Signer signs order and auth payloads for one wallet.
type Signer interface {
	Address() common.Address
	ChainID() *big.Int
	Sign(hash []byte) ([]byte, error)
}

// PrivateKeySigner is a Signer backed by a raw secp256k1 private key.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewPrivateKeySigner parses a hex private key (with or without 0x prefix).
func NewPrivateKeySigner(hexKey string, chainID int64) (*PrivateKeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

// Address returns the EOA address for the key.
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer targets.
func (s *PrivateKeySigner) ChainID() *big.Int {
	return s.chainID
}

// Sign produces a 65-byte [R || S || V] signature over a 32-byte hash, with
// V in {27, 28} as the exchange expects.
func (s *PrivateKeySigner) Sign(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if len(sig) == 65 && sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// SignTx signs an EVM transaction with the key, bound to the signer's chain.
func (s *PrivateKeySigner) SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(s.chainID), s.key)
}

// APIKey is the L2 credential triple derived from the exchange handshake.
type APIKey struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Valid reports whether all three credential parts are present.
func (k *APIKey) Valid() bool {
	return k != nil && k.Key != "" && k.Secret != "" && k.Passphrase != ""
}

// HashEIP191 hashes a plain message with the Ethereum signed-message prefix.
func HashEIP191(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
