package registry

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/custody"
	"github.com/lockboxlabs/lplocker/internal/state"
)

// Service defines the boundary surface of the lock registry.
type Service interface {
	CreateLock(ctx context.Context, caller common.Address, tokenID *big.Int, duration time.Duration, payment *big.Int) (*state.Lock, error)
	CollectFees(ctx context.Context, caller common.Address, lockID int64, recipient common.Address) (*custody.Harvest, error)
	Withdraw(ctx context.Context, caller common.Address, lockID int64) error
	GetLock(ctx context.Context, lockID int64) (*state.Lock, error)
	ListLocks(ctx context.Context, activeOnly bool, limit int) ([]*state.Lock, error)
	Config(ctx context.Context) (*state.Config, error)
	SetLockFee(ctx context.Context, caller common.Address, fee *big.Int) error
	SetFeeCollector(ctx context.Context, caller common.Address, collector common.Address) error
}

// Ensure Registry implements Service
var _ Service = (*Registry)(nil)
