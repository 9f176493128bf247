package custody

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionManagerABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	require.NoError(t, err)

	t.Run("has the adapter methods", func(t *testing.T) {
		for _, name := range []string{"safeTransferFrom", "collect", "ownerOf"} {
			_, ok := parsed.Methods[name]
			assert.True(t, ok, "missing method %s", name)
		}
	})

	t.Run("packs safeTransferFrom", func(t *testing.T) {
		from := common.HexToAddress("0x2000000000000000000000000000000000000002")
		to := common.HexToAddress("0x3000000000000000000000000000000000000003")

		data, err := parsed.Pack("safeTransferFrom", from, to, big.NewInt(7))
		require.NoError(t, err)
		// 4-byte selector + 3 words
		assert.Len(t, data, 4+3*32)
	})

	t.Run("packs collect params tuple", func(t *testing.T) {
		params := collectParams{
			TokenId:    big.NewInt(7),
			Recipient:  common.HexToAddress("0x2000000000000000000000000000000000000002"),
			Amount0Max: maxUint128,
			Amount1Max: maxUint128,
		}

		data, err := parsed.Pack("collect", params)
		require.NoError(t, err)
		assert.Len(t, data, 4+4*32)
	})

	t.Run("unpacks collect outputs", func(t *testing.T) {
		amount0 := big.NewInt(123)
		amount1 := big.NewInt(456)

		method := parsed.Methods["collect"]
		encoded, err := method.Outputs.Pack(amount0, amount1)
		require.NoError(t, err)

		out, err := parsed.Unpack("collect", encoded)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, amount0, out[0].(*big.Int))
		assert.Equal(t, amount1, out[1].(*big.Int))
	})
}

func TestMaxUint128(t *testing.T) {
	assert.Equal(t, 128, maxUint128.BitLen())
	assert.Equal(t, "340282366920938463463374607431768211455", maxUint128.String())
}
