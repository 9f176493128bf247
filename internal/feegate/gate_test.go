package feegate

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	calls  int
	amount *big.Int
	to     common.Address
	err    error
}

func (f *recordingForwarder) Forward(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.amount = new(big.Int).Set(amount)
	f.to = to
	return nil
}

func TestGate_Check(t *testing.T) {
	g := New(nil)
	fee := big.NewInt(100)

	t.Run("exact payment", func(t *testing.T) {
		assert.NoError(t, g.Check(big.NewInt(100), fee))
	})

	t.Run("overpayment", func(t *testing.T) {
		assert.NoError(t, g.Check(big.NewInt(500), fee))
	})

	t.Run("underpayment", func(t *testing.T) {
		assert.ErrorIs(t, g.Check(big.NewInt(99), fee), errors.ErrInsufficientFee)
	})

	t.Run("zero payment against zero fee", func(t *testing.T) {
		assert.NoError(t, g.Check(big.NewInt(0), big.NewInt(0)))
	})

	t.Run("nil and negative payments", func(t *testing.T) {
		assert.ErrorIs(t, g.Check(nil, fee), errors.ErrInvalidAmount)
		assert.ErrorIs(t, g.Check(big.NewInt(-1), fee), errors.ErrInvalidAmount)
	})
}

func TestGate_Forward(t *testing.T) {
	ctx := context.Background()
	payer := common.HexToAddress("0x2000000000000000000000000000000000000002")
	collector := common.HexToAddress("0x3000000000000000000000000000000000000003")

	t.Run("forwards the full payment", func(t *testing.T) {
		f := &recordingForwarder{}
		g := New(f)

		err := g.Forward(ctx, payer, collector, big.NewInt(150))
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls)
		assert.Equal(t, big.NewInt(150), f.amount)
		assert.Equal(t, collector, f.to)
	})

	t.Run("zero payment skips the transfer", func(t *testing.T) {
		f := &recordingForwarder{}
		g := New(f)

		err := g.Forward(ctx, payer, collector, big.NewInt(0))
		require.NoError(t, err)
		assert.Zero(t, f.calls)
	})

	t.Run("forwarder failure is wrapped", func(t *testing.T) {
		f := &recordingForwarder{err: fmt.Errorf("insufficient balance")}
		g := New(f)

		err := g.Forward(ctx, payer, collector, big.NewInt(100))
		assert.ErrorIs(t, err, errors.ErrFeeForwardFailed)
	})
}
