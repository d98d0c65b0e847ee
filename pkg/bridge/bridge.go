// Package bridge moves quote currency off the exchange: it builds, signs and
// broadcasts ERC-20 transfers from the funding wallet to an external address.
package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/auth"
)

// USDCPolygon is the collateral token contract on Polygon.
const USDCPolygon = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

const usdcDecimals = 6

// transfer(address,uint256)
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// Client broadcasts withdrawal transfers through an EVM backend.
type Client struct {
	backend bind.ContractBackend
	signer  *auth.PrivateKeySigner
	token   common.Address

	// GasLimit caps the transfer's gas. Zero means estimate.
	GasLimit uint64
}

// NewClient wires a withdrawal client over an EVM backend. An empty token
// address selects the Polygon USDC contract.
func NewClient(backend bind.ContractBackend, signer *auth.PrivateKeySigner, token common.Address) *Client {
	if token == (common.Address{}) {
		token = common.HexToAddress(USDCPolygon)
	}
	return &Client{backend: backend, signer: signer, token: token}
}

// Withdraw transfers amount (in quote currency units) from the signer's
// wallet to destination and returns the broadcast transaction hash. The
// transfer is fire-and-forget: confirmation is the caller's concern.
func (c *Client) Withdraw(ctx context.Context, amount decimal.Decimal, destination common.Address) (string, error) {
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("withdraw amount must be positive, got %s", amount)
	}
	raw := amount.Shift(usdcDecimals).Floor().BigInt()

	calldata := packTransfer(destination, raw)
	from := c.signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	tipCap, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("fetch head: %w", err)
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit := c.GasLimit
	if gasLimit == 0 {
		gasLimit, err = c.backend.EstimateGas(ctx, ethereum.CallMsg{
			From: from,
			To:   &c.token,
			Data: calldata,
		})
		if err != nil {
			return "", fmt.Errorf("estimate gas: %w", err)
		}
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   c.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &c.token,
		Data:      calldata,
	})
	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return "", fmt.Errorf("sign transfer: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast transfer: %w", err)
	}

	hash := signed.Hash().Hex()
	logs.Infof("[bridge] withdrew %s to %s tx=%s", amount.String(), destination.Hex(), hash)
	return hash, nil
}

// packTransfer ABI-encodes transfer(to, amount).
func packTransfer(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
