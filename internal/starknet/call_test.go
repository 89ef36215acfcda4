package starknet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU256Limbs(t *testing.T) {
	assert.Equal(t, []string{"0xde0b6b3a7640000", "0x0"}, U256(big.NewInt(1e18)))

	v := new(big.Int).Lsh(big.NewInt(3), 128)
	v.Add(v, big.NewInt(5))
	assert.Equal(t, []string{"0x5", "0x3"}, U256(v))

	assert.Equal(t, []string{"0x0", "0x0"}, U256(nil))
}

func TestI129(t *testing.T) {
	assert.Equal(t, []string{"0xde0b6b3a7640000", "0x1"}, I129(big.NewInt(-1e18)))
	assert.Equal(t, []string{"0x2a", "0x0"}, I129(big.NewInt(42)))
	assert.Equal(t, []string{"0x0", "0x0"}, I129(big.NewInt(0)))
}

func TestParseFelt(t *testing.T) {
	v, err := ParseFelt("0x2a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	v, err = ParseFelt("-1000")
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), v.Int64())

	_, err = ParseFelt("nope")
	assert.ErrorIs(t, err, ErrInvalidFelt)
}

func TestScalarEncoders(t *testing.T) {
	assert.Equal(t, "0x0", Felt(nil))
	assert.Equal(t, "0xc8", FeltUint(200))
	assert.Equal(t, "0x1", Bool(true))
	assert.Equal(t, "0x0", Bool(false))
}
