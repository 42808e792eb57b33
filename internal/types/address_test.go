package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Run("EVM address", func(t *testing.T) {
		a, err := ParseAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
		require.NoError(t, err)

		assert.True(t, a.IsEVM())
		assert.Equal(t, common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"), a.EVM())
		// top 12 bytes are zero padding
		for _, b := range a[:12] {
			assert.Zero(t, b)
		}
	})

	t.Run("bytes32", func(t *testing.T) {
		in := "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
		a, err := ParseAddress(in)
		require.NoError(t, err)
		assert.Equal(t, in, a.Hex())
		assert.False(t, a.IsEVM())
	})

	t.Run("starknet felt with dropped leading zeroes", func(t *testing.T) {
		a, err := ParseAddress("0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
		require.NoError(t, err)

		full, err := ParseAddress("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
		require.NoError(t, err)
		assert.Equal(t, full, a)
	})

	t.Run("felt round trip", func(t *testing.T) {
		a, err := ParseAddress("0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
		require.NoError(t, err)
		assert.Equal(t, a, AddressFromFelt(a.Felt()))
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, in := range []string{"not an address", "0xzz42"} {
			_, err := ParseAddress(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestAddressEVMRoundTrip(t *testing.T) {
	evm := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	a := AddressFromEVM(evm)
	assert.Equal(t, evm, a.EVM())
	assert.True(t, a.IsEVM())
}

func TestAddressZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())

	var a Address
	a[31] = 1
	assert.False(t, a.IsZero())
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", a.Hex())
}
