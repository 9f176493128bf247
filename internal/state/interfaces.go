package state

import (
	"context"
	"time"
)

// LockStore defines the interface for custody ledger storage.
type LockStore interface {
	Close() error
	DataDir() string

	// Config operations
	InitConfig(ctx context.Context, c *Config) error
	GetConfig(ctx context.Context) (*Config, error)
	SetLockFee(ctx context.Context, fee string) error
	SetFeeCollector(ctx context.Context, collector string) error

	// Lock operations
	CreateLock(ctx context.Context, l *Lock) error
	GetLock(ctx context.Context, id int64) (*Lock, error)
	GetActiveLockByToken(ctx context.Context, tokenID string) (*Lock, error)
	ListLocks(ctx context.Context, activeOnly bool, limit int) ([]*Lock, error)
	CountActiveLocks(ctx context.Context) (int, error)
	MarkWithdrawn(ctx context.Context, id int64, at time.Time) error
	RestoreActive(ctx context.Context, id int64) error

	// Event operations
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, limit int) ([]*Event, error)
}

// Ensure Store implements LockStore
var _ LockStore = (*Store)(nil)
