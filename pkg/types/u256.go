package types

import (
	"fmt"
	"math/big"
	"strings"
)

// U256 is an unsigned 256-bit integer serialized as a JSON decimal string,
// matching the exchange's wire format for salts, token ids, and amounts.
type U256 struct {
	Int *big.Int
}

// MarshalJSON renders the integer as a quoted decimal string.
func (u U256) MarshalJSON() ([]byte, error) {
	if u.Int == nil {
		return []byte(`"0"`), nil
	}
	return []byte(`"` + u.Int.String() + `"`), nil
}

// UnmarshalJSON accepts quoted or bare decimal integers.
func (u *U256) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		u.Int = new(big.Int)
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid u256 %q", s)
	}
	u.Int = v
	return nil
}

// String returns the decimal representation.
func (u U256) String() string {
	if u.Int == nil {
		return "0"
	}
	return u.Int.String()
}
