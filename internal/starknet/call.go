// Package starknet holds the on-chain call representation handed to the entry
// submitter, and the calldata encoders for the Cairo types the swap router expects.
package starknet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// ErrInvalidFelt is returned when a value cannot be represented as a felt.
var ErrInvalidFelt = errors.New("invalid felt")

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// Call is a single contract invocation within a multicall.
type Call struct {
	ContractAddress string   `json:"contractAddress"`
	Entrypoint      string   `json:"entrypoint"`
	Calldata        []string `json:"calldata"`
}

// Felt encodes a non-negative integer as a hex felt.
func Felt(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return hexutil.EncodeBig(new(big.Int).Abs(v))
}

// FeltUint encodes a small unsigned integer.
func FeltUint(v uint64) string {
	return hexutil.EncodeUint64(v)
}

// Bool encodes a Cairo bool.
func Bool(b bool) string {
	if b {
		return "0x1"
	}
	return "0x0"
}

// U256 splits a non-negative integer into its (low, high) 128-bit limbs.
func U256(v *big.Int) []string {
	if v == nil {
		return []string{"0x0", "0x0"}
	}
	abs := new(big.Int).Abs(v)
	high, low := new(big.Int).QuoRem(abs, two128, new(big.Int))
	return []string{Felt(low), Felt(high)}
}

// I129 encodes a signed integer as Ekubo's (mag, sign) pair; sign is set for negatives.
func I129(v *big.Int) []string {
	if v == nil {
		return []string{"0x0", "0x0"}
	}
	return []string{Felt(v), Bool(v.Sign() < 0)}
}

// ParseFelt reads a decimal or 0x-prefixed hex string into an integer.
func ParseFelt(s string) (*big.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, ErrInvalidFelt
	}
	return v, nil
}
