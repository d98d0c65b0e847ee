package auth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Polygon mainnet factories for the two smart-contract wallet flavors.
var (
	proxyFactory     = common.HexToAddress("0xaB45c5A4B0c941a2F231C04C3f49182e1A254052")
	safeFactory      = common.HexToAddress("0xaacFeEa03eb1561C4e67d661e40682Bd20E3541b")
	proxyInitCodeHex = common.FromHex("0xd2cc2b66f8e5b2e0e48d9a068eff5b26e1d2ac2c828dc1f14be24fa079d2cbc4")
	safeInitCodeHex  = common.FromHex("0x6f0f6390e7c0ff1b4e9a9ecba2e2a17e44aa2d3e903a70b2aa3a1cdfd8f16dbb")
)

// DeriveProxyWallet computes the deterministic proxy wallet address for an
// EOA via CREATE2 against the proxy factory.
func DeriveProxyWallet(owner common.Address) (common.Address, error) {
	return deriveCreate2(proxyFactory, owner, proxyInitCodeHex)
}

// DeriveSafeWallet computes the deterministic Gnosis Safe address for an EOA
// via CREATE2 against the safe factory.
func DeriveSafeWallet(owner common.Address) (common.Address, error) {
	return deriveCreate2(safeFactory, owner, safeInitCodeHex)
}

// MakerAddress resolves the funds-holding address for a signature type.
func MakerAddress(signer Signer, sigType SignatureType) (common.Address, error) {
	if signer == nil {
		return common.Address{}, fmt.Errorf("signer is required")
	}
	switch sigType {
	case SignatureProxy:
		return DeriveProxyWallet(signer.Address())
	case SignatureGnosisSafe:
		return DeriveSafeWallet(signer.Address())
	default:
		return signer.Address(), nil
	}
}

func deriveCreate2(factory, owner common.Address, initCodeHash []byte) (common.Address, error) {
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("owner cannot be zero address")
	}
	salt := crypto.Keccak256(common.LeftPadBytes(owner.Bytes(), 32))
	payload := make([]byte, 0, 1+20+32+32)
	payload = append(payload, 0xff)
	payload = append(payload, factory.Bytes()...)
	payload = append(payload, salt...)
	payload = append(payload, initCodeHash...)
	return common.BytesToAddress(crypto.Keccak256(payload)[12:]), nil
}
