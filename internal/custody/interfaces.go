// Package custody bridges the lock registry to the external position-manager
// protocol. The adapter is a pure pass-through: every authorization and state
// check happens in the registry before it is invoked.
package custody

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Harvest holds the token amounts paid out by a fee harvest. Both amounts may
// legitimately be zero.
type Harvest struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// Adapter exposes the three capabilities the registry needs from the position
// manager: pull a token into vault custody, pay out its accrued fees without
// releasing custody, and push it back out.
type Adapter interface {
	TakeCustody(ctx context.Context, tokenID *big.Int, from common.Address) error
	HarvestFees(ctx context.Context, tokenID *big.Int, recipient common.Address) (*Harvest, error)
	ReturnCustody(ctx context.Context, tokenID *big.Int, to common.Address) error
}

// Ensure NPMAdapter implements Adapter
var _ Adapter = (*NPMAdapter)(nil)
