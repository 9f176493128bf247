// Package feegate validates and forwards the one-time lock-creation payment.
package feegate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/errors"
)

// Forwarder is the capability used to move a validated payment to the fee
// collector.
type Forwarder interface {
	Forward(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// Gate validates create-time payments against the configured lock fee and
// forwards them to the collector.
type Gate struct {
	forwarder Forwarder
}

// New creates a Gate backed by the given forwarder.
func New(forwarder Forwarder) *Gate {
	return &Gate{forwarder: forwarder}
}

// Check validates that payment covers the required fee.
func (g *Gate) Check(payment, required *big.Int) error {
	if payment == nil || payment.Sign() < 0 {
		return errors.ErrInvalidAmount
	}
	if required != nil && payment.Cmp(required) < 0 {
		return fmt.Errorf("%w: paid %s, required %s", errors.ErrInsufficientFee, payment, required)
	}
	return nil
}

// Forward moves the full payment to the collector. Overpayment is forwarded
// in full rather than refunded.
func (g *Gate) Forward(ctx context.Context, payer, collector common.Address, payment *big.Int) error {
	if payment.Sign() == 0 {
		return nil
	}
	if err := g.forwarder.Forward(ctx, payer, collector, payment); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrFeeForwardFailed, err)
	}
	return nil
}
