// Package registry implements the lock life-cycle state machine and its
// custody bookkeeping. All authorization, timing, and reentrancy checks live
// here; the custody adapter and fee gate are driven only after the checks
// pass.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockboxlabs/lplocker/internal/access"
	"github.com/lockboxlabs/lplocker/internal/custody"
	"github.com/lockboxlabs/lplocker/internal/errors"
	"github.com/lockboxlabs/lplocker/internal/events"
	"github.com/lockboxlabs/lplocker/internal/feegate"
	"github.com/lockboxlabs/lplocker/internal/metrics"
	"github.com/lockboxlabs/lplocker/internal/state"
)

// Registry owns the mapping from lock id to lock record and implements the
// create / collect-fees / withdraw operations.
//
// Per-record state machine: Active (entered atomically at CreateLock) ->
// Withdrawn (terminal, entered only via Withdraw). CollectFees is a self-loop
// on Active. There is no cancellation, early-unlock, or pause path.
type Registry struct {
	store   state.LockStore
	adapter custody.Adapter
	gate    *feegate.Gate
	notify  *events.Manager
	guard   access.Guard

	// now is the clock used for maturity comparisons. Overridable in tests.
	now func() time.Time

	// OnWarn receives non-fatal warnings (failed event fan-out, failed
	// compensation). Nil disables it.
	OnWarn func(format string, args ...interface{})
}

// New creates a Registry over the given collaborators.
func New(store state.LockStore, adapter custody.Adapter, gate *feegate.Gate, notify *events.Manager) *Registry {
	return &Registry{
		store:   store,
		adapter: adapter,
		gate:    gate,
		notify:  notify,
		now:     time.Now,
	}
}

// CreateLock takes custody of the position token, forwards the lock fee, and
// records a new active lock. Any failure aborts the whole operation with no
// partial state: no fee taken, no custody kept, no record created.
func (r *Registry) CreateLock(ctx context.Context, caller common.Address, tokenID *big.Int, duration time.Duration, payment *big.Int) (*state.Lock, error) {
	release, err := r.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := access.RequireNonZero(caller); err != nil {
		return nil, err
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, errors.ErrInvalidTokenID
	}

	cfg, err := r.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	if duration <= 0 || duration < cfg.MinDuration {
		metrics.RejectedOperations.WithLabelValues("create").Inc()
		return nil, fmt.Errorf("%w: %s (minimum %s)", errors.ErrInvalidDuration, duration, cfg.MinDuration)
	}

	fee, err := configFee(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.gate.Check(payment, fee); err != nil {
		metrics.RejectedOperations.WithLabelValues("create").Inc()
		return nil, err
	}

	// Custody is exclusive: one active lock per position token. The partial
	// unique index backstops this check.
	if _, err := r.store.GetActiveLockByToken(ctx, tokenID.String()); err == nil {
		metrics.RejectedOperations.WithLabelValues("create").Inc()
		return nil, fmt.Errorf("%w: token %s", errors.ErrTokenAlreadyLocked, tokenID)
	} else if err != errors.ErrLockNotFound {
		return nil, err
	}

	if err := r.adapter.TakeCustody(ctx, tokenID, caller); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("take_custody").Inc()
		return nil, fmt.Errorf("%w: %v", errors.ErrCustodyTransferFailed, err)
	}

	collector := common.HexToAddress(cfg.FeeCollector)
	if err := r.gate.Forward(ctx, caller, collector, payment); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("forward_fee").Inc()
		r.compensateCustody(ctx, tokenID, caller)
		return nil, err
	}

	now := r.now().UTC()
	lock := &state.Lock{
		PositionTokenID: tokenID.String(),
		Depositor:       caller.Hex(),
		CreatedAt:       now,
		UnlockAt:        now.Add(duration),
	}
	if err := r.store.CreateLock(ctx, lock); err != nil {
		r.compensateCustody(ctx, tokenID, caller)
		return nil, err
	}

	metrics.LocksCreated.Inc()
	metrics.ActiveLocks.Inc()
	r.record(ctx, events.Event{
		Type:    events.TypeLockCreated,
		LockID:  lock.ID,
		TokenID: lock.PositionTokenID,
		Caller:  caller.Hex(),
		Details: map[string]string{
			"unlock_at": lock.UnlockAt.Format(time.RFC3339),
			"payment":   payment.String(),
		},
	})

	return lock, nil
}

// CollectFees harvests all currently accrued fees of the custodied position
// to the recipient (the caller if unspecified). Lock timing and state are
// untouched; the operation may be repeated any number of times while the lock
// is active. Zero harvested amounts are not an error.
func (r *Registry) CollectFees(ctx context.Context, caller common.Address, lockID int64, recipient common.Address) (*custody.Harvest, error) {
	release, err := r.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	lock, err := r.store.GetLock(ctx, lockID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireDepositor(caller, common.HexToAddress(lock.Depositor)); err != nil {
		metrics.RejectedOperations.WithLabelValues("collect").Inc()
		return nil, err
	}
	if !lock.Active {
		metrics.RejectedOperations.WithLabelValues("collect").Inc()
		return nil, fmt.Errorf("%w: lock %d", errors.ErrLockNotActive, lockID)
	}

	if recipient == (common.Address{}) {
		recipient = caller
	}

	tokenID, ok := new(big.Int).SetString(lock.PositionTokenID, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt token id on lock %d: %q", lockID, lock.PositionTokenID)
	}

	harvest, err := r.adapter.HarvestFees(ctx, tokenID, recipient)
	if err != nil {
		metrics.ExternalCallFailures.WithLabelValues("harvest").Inc()
		return nil, fmt.Errorf("%w: %v", errors.ErrHarvestFailed, err)
	}

	metrics.FeeCollections.Inc()
	r.record(ctx, events.Event{
		Type:    events.TypeFeesCollected,
		LockID:  lock.ID,
		TokenID: lock.PositionTokenID,
		Caller:  caller.Hex(),
		Details: map[string]string{
			"amount0":   harvest.Amount0.String(),
			"amount1":   harvest.Amount1.String(),
			"recipient": recipient.Hex(),
		},
	})

	return harvest, nil
}

// Withdraw releases custody back to the depositor once the lock has matured.
// The record is flipped to withdrawn before the custody-return call is
// issued; if that call fails the flip is compensated while the operation
// guard is still held, so no other caller ever observes the intermediate
// state.
func (r *Registry) Withdraw(ctx context.Context, caller common.Address, lockID int64) error {
	release, err := r.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	lock, err := r.store.GetLock(ctx, lockID)
	if err != nil {
		return err
	}
	if err := access.RequireDepositor(caller, common.HexToAddress(lock.Depositor)); err != nil {
		metrics.RejectedOperations.WithLabelValues("withdraw").Inc()
		return err
	}
	if !lock.Active {
		metrics.RejectedOperations.WithLabelValues("withdraw").Inc()
		return fmt.Errorf("%w: lock %d", errors.ErrAlreadyWithdrawn, lockID)
	}

	now := r.now().UTC()
	if now.Before(lock.UnlockAt) {
		metrics.RejectedOperations.WithLabelValues("withdraw").Inc()
		return fmt.Errorf("%w: unlocks at %s", errors.ErrStillLocked, lock.UnlockAt.Format(time.RFC3339))
	}

	tokenID, ok := new(big.Int).SetString(lock.PositionTokenID, 10)
	if !ok {
		return fmt.Errorf("corrupt token id on lock %d: %q", lockID, lock.PositionTokenID)
	}

	// Effects before interactions: commit the terminal state first.
	if err := r.store.MarkWithdrawn(ctx, lock.ID, now); err != nil {
		return err
	}

	if err := r.adapter.ReturnCustody(ctx, tokenID, caller); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("return_custody").Inc()
		if restoreErr := r.store.RestoreActive(ctx, lock.ID); restoreErr != nil {
			r.warn("failed to restore lock %d after custody return failure: %v", lock.ID, restoreErr)
		}
		return fmt.Errorf("%w: %v", errors.ErrCustodyTransferFailed, err)
	}

	metrics.LocksWithdrawn.Inc()
	metrics.ActiveLocks.Dec()
	r.record(ctx, events.Event{
		Type:    events.TypeUnlocked,
		LockID:  lock.ID,
		TokenID: lock.PositionTokenID,
		Caller:  caller.Hex(),
		Details: map[string]string{
			"recipient": caller.Hex(),
		},
	})

	return nil
}

// GetLock returns a lock record by id.
func (r *Registry) GetLock(ctx context.Context, lockID int64) (*state.Lock, error) {
	return r.store.GetLock(ctx, lockID)
}

// ListLocks returns lock records, most recent first.
func (r *Registry) ListLocks(ctx context.Context, activeOnly bool, limit int) ([]*state.Lock, error) {
	return r.store.ListLocks(ctx, activeOnly, limit)
}

// Config returns the vault configuration.
func (r *Registry) Config(ctx context.Context) (*state.Config, error) {
	return r.store.GetConfig(ctx)
}

// PrimeMetrics seeds the active-lock gauge from the ledger. Called once on
// startup by long-running processes.
func (r *Registry) PrimeMetrics(ctx context.Context) error {
	n, err := r.store.CountActiveLocks(ctx)
	if err != nil {
		return err
	}
	metrics.ActiveLocks.Set(float64(n))
	return nil
}

// SetLockFee updates the lock creation fee. Owner only.
func (r *Registry) SetLockFee(ctx context.Context, caller common.Address, fee *big.Int) error {
	release, err := r.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := r.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(caller, common.HexToAddress(cfg.Owner)); err != nil {
		return err
	}
	if fee == nil || fee.Sign() < 0 {
		return errors.ErrInvalidAmount
	}

	if err := r.store.SetLockFee(ctx, fee.String()); err != nil {
		return err
	}

	r.record(ctx, events.Event{
		Type:   events.TypeLockFeeUpdated,
		Caller: caller.Hex(),
		Details: map[string]string{
			"lock_fee": fee.String(),
		},
	})

	return nil
}

// SetFeeCollector updates the fee collector address. Owner only; the zero
// address is rejected.
func (r *Registry) SetFeeCollector(ctx context.Context, caller common.Address, collector common.Address) error {
	release, err := r.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := r.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(caller, common.HexToAddress(cfg.Owner)); err != nil {
		return err
	}
	if err := access.RequireNonZero(collector); err != nil {
		return err
	}

	if err := r.store.SetFeeCollector(ctx, collector.Hex()); err != nil {
		return err
	}

	r.record(ctx, events.Event{
		Type:   events.TypeFeeCollectorUpdated,
		Caller: caller.Hex(),
		Details: map[string]string{
			"fee_collector": collector.Hex(),
		},
	})

	return nil
}

// compensateCustody returns a token taken earlier in a create operation that
// failed after custody moved. Best effort: the operation already failed, the
// original error wins.
func (r *Registry) compensateCustody(ctx context.Context, tokenID *big.Int, to common.Address) {
	if err := r.adapter.ReturnCustody(ctx, tokenID, to); err != nil {
		r.warn("failed to return token %s to %s after aborted create: %v", tokenID, to.Hex(), err)
	}
}

// record appends the event to the audit log and mirrors it to the registered
// notifiers. Fan-out is best effort and never fails the operation.
func (r *Registry) record(ctx context.Context, ev events.Event) {
	lockID := ev.LockID
	stored := &state.Event{
		Type:            string(ev.Type),
		PositionTokenID: ev.TokenID,
		Caller:          ev.Caller,
		Details:         ev.Details,
	}
	if lockID != 0 {
		stored.LockID = &lockID
	}
	if err := r.store.AppendEvent(ctx, stored); err != nil {
		r.warn("failed to append %s event: %v", ev.Type, err)
	}

	if r.notify != nil && r.notify.Count() > 0 {
		if err := r.notify.Notify(ctx, ev); err != nil {
			r.warn("failed to notify %s event: %v", ev.Type, err)
		}
	}
}

func (r *Registry) warn(format string, args ...interface{}) {
	if r.OnWarn != nil {
		r.OnWarn(format, args...)
	}
}

func configFee(cfg *state.Config) (*big.Int, error) {
	fee, ok := new(big.Int).SetString(cfg.LockFee, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: configured lock fee %q", errors.ErrInvalidAmount, cfg.LockFee)
	}
	return fee, nil
}
