// Package access provides the authorization checks and the reentrancy
// discipline applied around every state-mutating registry operation.
package access

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/errors"
)

// Guard is a non-reentrant gate. A mutating operation holds it from its first
// precondition check until after its last external call, so a re-entrant
// invocation (an adapter calling back into the registry mid-operation) fails
// with ErrOperationInProgress instead of observing partial state.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// Enter acquires the guard and returns the release function. It never blocks:
// if an operation is already in flight the caller is rejected.
func (g *Guard) Enter() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return nil, errors.ErrOperationInProgress
	}
	g.busy = true

	return func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}, nil
}

// RequireDepositor checks that the caller is the recorded depositor.
func RequireDepositor(caller, depositor common.Address) error {
	if caller != depositor {
		return fmt.Errorf("%w: caller %s, depositor %s", errors.ErrNotDepositor, caller.Hex(), depositor.Hex())
	}
	return nil
}

// RequireOwner checks that the caller is the vault owner.
func RequireOwner(caller, owner common.Address) error {
	if caller != owner {
		return fmt.Errorf("%w: caller %s", errors.ErrNotOwner, caller.Hex())
	}
	return nil
}

// RequireNonZero rejects the zero address.
func RequireNonZero(addr common.Address) error {
	if addr == (common.Address{}) {
		return errors.ErrZeroAddress
	}
	return nil
}
