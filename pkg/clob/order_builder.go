package clob

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/auth"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

const (
	usdcDecimals = int32(6)
	lotSizeScale = int32(2)
)

// SaltGenerator generates salts for new orders.
type SaltGenerator func() (*big.Int, error)

// OrderBuilder constructs signed orders with correct amounts and addresses.
type OrderBuilder struct {
	signer auth.Signer

	tokenID    string
	side       types.Side
	price      decimal.Decimal
	size       decimal.Decimal
	tickSize   decimal.Decimal
	feeRateBps int64

	signatureType auth.SignatureType
	funder        *common.Address
	saltGenerator SaltGenerator
}

// NewOrderBuilder creates an order builder for one signer.
func NewOrderBuilder(signer auth.Signer) *OrderBuilder {
	return &OrderBuilder{
		signer:   signer,
		tickSize: decimal.RequireFromString("0.01"),
	}
}

// TokenID sets the outcome token to trade.
func (b *OrderBuilder) TokenID(tokenID string) *OrderBuilder {
	b.tokenID = tokenID
	return b
}

// Side sets the trade side.
func (b *OrderBuilder) Side(side types.Side) *OrderBuilder {
	b.side = side
	return b
}

// PriceDec sets the limit price per share.
func (b *OrderBuilder) PriceDec(price decimal.Decimal) *OrderBuilder {
	b.price = price
	return b
}

// SizeDec sets the number of shares.
func (b *OrderBuilder) SizeDec(size decimal.Decimal) *OrderBuilder {
	b.size = size
	return b
}

// TickSizeDec sets the market's minimum price increment.
func (b *OrderBuilder) TickSizeDec(tick decimal.Decimal) *OrderBuilder {
	if tick.Sign() > 0 {
		b.tickSize = tick
	}
	return b
}

// FeeRateBps sets the fee rate in basis points.
func (b *OrderBuilder) FeeRateBps(bps int64) *OrderBuilder {
	b.feeRateBps = bps
	return b
}

// SignatureType selects which wallet flavor funds the order.
func (b *OrderBuilder) SignatureType(t auth.SignatureType) *OrderBuilder {
	b.signatureType = t
	return b
}

// Funder overrides the funds-holding address for non-EOA wallets.
func (b *OrderBuilder) Funder(addr common.Address) *OrderBuilder {
	b.funder = &addr
	return b
}

// SaltGenerator overrides the salt source (tests).
func (b *OrderBuilder) SaltGenerator(g SaltGenerator) *OrderBuilder {
	b.saltGenerator = g
	return b
}

// Build validates inputs, computes maker/taker amounts in fixed-point, and
// signs the order hash.
func (b *OrderBuilder) Build() (*clobtypes.Order, error) {
	if b.signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if b.tokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	if !b.side.Valid() {
		return nil, fmt.Errorf("side must be BUY or SELL")
	}
	if b.price.Sign() <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if b.size.Sign() <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}

	tokenIDInt, ok := new(big.Int).SetString(b.tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token_id format")
	}

	tickScale := decimalPlaces(b.tickSize)
	if decimalPlaces(b.price) > tickScale {
		return nil, fmt.Errorf("price has too many decimal places for tick size %s", b.tickSize.String())
	}
	one := decimal.NewFromInt(1)
	if b.price.LessThan(b.tickSize) || b.price.GreaterThan(one.Sub(b.tickSize)) {
		return nil, fmt.Errorf("price %s is out of bounds for tick size %s", b.price.String(), b.tickSize.String())
	}
	if decimalPlaces(b.size) > lotSizeScale {
		return nil, fmt.Errorf("size has too many decimal places (max %d)", lotSizeScale)
	}

	truncScale := tickScale + lotSizeScale
	var makerAmount, takerAmount decimal.Decimal
	if b.side == types.SideBuy {
		takerAmount = b.size
		makerAmount = b.size.Mul(b.price).Truncate(truncScale)
	} else {
		makerAmount = b.size
		takerAmount = b.size.Mul(b.price).Truncate(truncScale)
	}

	maker, err := b.resolveMaker()
	if err != nil {
		return nil, err
	}

	salt, err := b.generateSalt()
	if err != nil {
		return nil, err
	}

	order := &clobtypes.Order{
		Salt:          types.U256{Int: salt},
		Maker:         maker.Hex(),
		Signer:        b.signer.Address().Hex(),
		Taker:         common.Address{}.Hex(),
		TokenID:       types.U256{Int: tokenIDInt},
		MakerAmount:   toFixedDecimal(makerAmount).String(),
		TakerAmount:   toFixedDecimal(takerAmount).String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    decimal.NewFromInt(b.feeRateBps).String(),
		Side:          string(b.side),
		SignatureType: int(b.signatureType),
	}

	sig, err := b.signer.Sign(hashOrder(order, b.signer.ChainID()))
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}
	order.Signature = "0x" + hex.EncodeToString(sig)
	return order, nil
}

func (b *OrderBuilder) resolveMaker() (common.Address, error) {
	if b.funder != nil {
		if b.signatureType == auth.SignatureEOA {
			return common.Address{}, fmt.Errorf("funder requires non-EOA signature type")
		}
		if *b.funder == (common.Address{}) {
			return common.Address{}, fmt.Errorf("funder cannot be zero address")
		}
		return *b.funder, nil
	}
	return auth.MakerAddress(b.signer, b.signatureType)
}

func (b *OrderBuilder) generateSalt() (*big.Int, error) {
	if b.saltGenerator != nil {
		return b.saltGenerator()
	}
	return generateSalt()
}

func generateSalt() (*big.Int, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	raw := binary.BigEndian.Uint64(buf[:])
	raw &= (1 << 53) - 1
	return new(big.Int).SetUint64(raw), nil
}

// hashOrder computes the struct hash the exchange verifies. Fields are
// packed in wire order with the chain id as domain separation.
func hashOrder(o *clobtypes.Order, chainID *big.Int) []byte {
	packed := make([]byte, 0, 320)
	appendPadded := func(v *big.Int) {
		packed = append(packed, common.LeftPadBytes(v.Bytes(), 32)...)
	}
	if chainID != nil {
		appendPadded(chainID)
	}
	appendPadded(o.Salt.Int)
	packed = append(packed, common.HexToAddress(o.Maker).Bytes()...)
	packed = append(packed, common.HexToAddress(o.Signer).Bytes()...)
	packed = append(packed, common.HexToAddress(o.Taker).Bytes()...)
	appendPadded(o.TokenID.Int)
	packed = append(packed, []byte(o.MakerAmount)...)
	packed = append(packed, []byte(o.TakerAmount)...)
	packed = append(packed, []byte(o.FeeRateBps)...)
	packed = append(packed, []byte(o.Side)...)
	packed = append(packed, byte(o.SignatureType))
	return crypto.Keccak256(packed)
}

func decimalPlaces(d decimal.Decimal) int32 {
	exp := d.Exponent()
	if exp < 0 {
		return -exp
	}
	return 0
}

func toFixedDecimal(d decimal.Decimal) decimal.Decimal {
	trimmed := d.Truncate(usdcDecimals)
	return trimmed.Shift(usdcDecimals).Truncate(0)
}
