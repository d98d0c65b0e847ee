package auth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestNewPrivateKeySigner(t *testing.T) {
	signer, err := NewPrivateKeySigner(testKey, 137)
	if err != nil {
		t.Fatalf("NewPrivateKeySigner failed: %v", err)
	}
	if signer.Address() == (common.Address{}) {
		t.Errorf("address should not be zero")
	}
	if signer.ChainID().Int64() != 137 {
		t.Errorf("chain id mismatch")
	}

	sig, err := signer.Sign(HashEIP191([]byte("hello")))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(sig) != 65 {
		t.Errorf("expected 65-byte signature, got %d", len(sig))
	}
	if v := sig[64]; v != 27 && v != 28 {
		t.Errorf("expected V in {27,28}, got %d", v)
	}
}

func TestNewPrivateKeySignerRejectsEmpty(t *testing.T) {
	if _, err := NewPrivateKeySigner("", 137); err == nil {
		t.Errorf("empty key should fail")
	}
	if _, err := NewPrivateKeySigner("nothex", 137); err == nil {
		t.Errorf("invalid key should fail")
	}
}

func TestDeriveWalletsDeterministic(t *testing.T) {
	signer, _ := NewPrivateKeySigner(testKey, 137)

	proxy1, err := DeriveProxyWallet(signer.Address())
	if err != nil {
		t.Fatalf("DeriveProxyWallet failed: %v", err)
	}
	proxy2, _ := DeriveProxyWallet(signer.Address())
	if proxy1 != proxy2 {
		t.Errorf("proxy derivation must be deterministic")
	}
	if proxy1 == signer.Address() {
		t.Errorf("proxy must differ from EOA")
	}

	safe, err := DeriveSafeWallet(signer.Address())
	if err != nil {
		t.Fatalf("DeriveSafeWallet failed: %v", err)
	}
	if safe == proxy1 {
		t.Errorf("safe and proxy derivations must differ")
	}

	if _, err := DeriveProxyWallet(common.Address{}); err == nil {
		t.Errorf("zero owner should fail")
	}
}

func TestMakerAddress(t *testing.T) {
	signer, _ := NewPrivateKeySigner(testKey, 137)

	eoa, err := MakerAddress(signer, SignatureEOA)
	if err != nil || eoa != signer.Address() {
		t.Errorf("EOA maker should be the signer address")
	}
	proxy, err := MakerAddress(signer, SignatureProxy)
	if err != nil || proxy == signer.Address() {
		t.Errorf("proxy maker should be derived")
	}
}

func TestAPIKeyValid(t *testing.T) {
	var nilKey *APIKey
	if nilKey.Valid() {
		t.Errorf("nil key should be invalid")
	}
	if (&APIKey{Key: "k"}).Valid() {
		t.Errorf("partial key should be invalid")
	}
	if !(&APIKey{Key: "k", Secret: "s", Passphrase: "p"}).Valid() {
		t.Errorf("full key should be valid")
	}
}
