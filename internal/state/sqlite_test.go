package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lockboxlabs/lplocker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "lplocker-test-*")
	require.NoError(t, err)

	store, err := New(tmpDir)
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func testConfig() *Config {
	return &Config{
		PositionManager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		Owner:           "0x1000000000000000000000000000000000000001",
		LockFee:         "10000000000000000",
		FeeCollector:    "0x3000000000000000000000000000000000000003",
		MinDuration:     time.Hour,
	}
}

func testLock(token string) *Lock {
	now := time.Now().UTC().Truncate(time.Second)
	return &Lock{
		PositionTokenID: token,
		Depositor:       "0x2000000000000000000000000000000000000002",
		CreatedAt:       now,
		UnlockAt:        now.Add(24 * time.Hour),
	}
}

func TestStore_Config(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("get before init", func(t *testing.T) {
		_, err := store.GetConfig(ctx)
		assert.ErrorIs(t, err, errors.ErrNotInitialized)
	})

	t.Run("set fee before init", func(t *testing.T) {
		err := store.SetLockFee(ctx, "5")
		assert.ErrorIs(t, err, errors.ErrNotInitialized)
	})

	t.Run("init and get", func(t *testing.T) {
		err := store.InitConfig(ctx, testConfig())
		require.NoError(t, err)

		got, err := store.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0xC36442b4a4522E871399CD717aBDD847Ab11FE88", got.PositionManager)
		assert.Equal(t, "10000000000000000", got.LockFee)
		assert.Equal(t, time.Hour, got.MinDuration)
	})

	t.Run("double init fails", func(t *testing.T) {
		err := store.InitConfig(ctx, testConfig())
		assert.ErrorIs(t, err, errors.ErrAlreadyInitialized)
	})

	t.Run("update fee and collector", func(t *testing.T) {
		require.NoError(t, store.SetLockFee(ctx, "25000000000000000"))
		require.NoError(t, store.SetFeeCollector(ctx, "0x4000000000000000000000000000000000000004"))

		got, err := store.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, "25000000000000000", got.LockFee)
		assert.Equal(t, "0x4000000000000000000000000000000000000004", got.FeeCollector)
	})
}

func TestStore_LockCRUD(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.InitConfig(ctx, testConfig()))

	t.Run("create assigns id and active", func(t *testing.T) {
		l := testLock("7")
		err := store.CreateLock(ctx, l)
		require.NoError(t, err)
		assert.True(t, l.Active)
		assert.Greater(t, l.ID, int64(0))

		got, err := store.GetLock(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, "7", got.PositionTokenID)
		assert.Equal(t, l.Depositor, got.Depositor)
		assert.True(t, got.Active)
		assert.Nil(t, got.WithdrawnAt)
	})

	t.Run("get non-existent lock", func(t *testing.T) {
		_, err := store.GetLock(ctx, 9999)
		assert.ErrorIs(t, err, errors.ErrLockNotFound)
	})

	t.Run("active token cannot be locked twice", func(t *testing.T) {
		err := store.CreateLock(ctx, testLock("7"))
		assert.ErrorIs(t, err, errors.ErrTokenAlreadyLocked)
	})

	t.Run("get active lock by token", func(t *testing.T) {
		got, err := store.GetActiveLockByToken(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "7", got.PositionTokenID)

		_, err = store.GetActiveLockByToken(ctx, "42")
		assert.ErrorIs(t, err, errors.ErrLockNotFound)
	})

	t.Run("list locks", func(t *testing.T) {
		require.NoError(t, store.CreateLock(ctx, testLock("8")))

		locks, err := store.ListLocks(ctx, false, 50)
		require.NoError(t, err)
		assert.Len(t, locks, 2)
		// Most recent first
		assert.Equal(t, "8", locks[0].PositionTokenID)

		n, err := store.CountActiveLocks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestStore_Withdrawal(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.InitConfig(ctx, testConfig()))

	l := testLock("7")
	require.NoError(t, store.CreateLock(ctx, l))

	t.Run("mark withdrawn is one-way", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, store.MarkWithdrawn(ctx, l.ID, at))

		got, err := store.GetLock(ctx, l.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		require.NotNil(t, got.WithdrawnAt)
		assert.Equal(t, at, got.WithdrawnAt.UTC())

		err = store.MarkWithdrawn(ctx, l.ID, at)
		assert.ErrorIs(t, err, errors.ErrAlreadyWithdrawn)
	})

	t.Run("withdrawn record survives", func(t *testing.T) {
		locks, err := store.ListLocks(ctx, false, 50)
		require.NoError(t, err)
		assert.Len(t, locks, 1)

		active, err := store.ListLocks(ctx, true, 50)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("token can be locked again after withdrawal", func(t *testing.T) {
		l2 := testLock("7")
		require.NoError(t, store.CreateLock(ctx, l2))

		// A fresh id, never a reused one
		assert.Greater(t, l2.ID, l.ID)
	})

	t.Run("restore active reverts the flip", func(t *testing.T) {
		l3 := testLock("99")
		require.NoError(t, store.CreateLock(ctx, l3))
		require.NoError(t, store.MarkWithdrawn(ctx, l3.ID, time.Now().UTC()))

		require.NoError(t, store.RestoreActive(ctx, l3.ID))

		got, err := store.GetLock(ctx, l3.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
		assert.Nil(t, got.WithdrawnAt)

		err = store.RestoreActive(ctx, l3.ID)
		assert.ErrorIs(t, err, errors.ErrLockNotFound)
	})
}

func TestStore_IDsNeverReused(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.InitConfig(ctx, testConfig()))

	var lastID int64
	for i := 0; i < 5; i++ {
		l := testLock("7")
		require.NoError(t, store.CreateLock(ctx, l))
		assert.Greater(t, l.ID, lastID)
		lastID = l.ID
		require.NoError(t, store.MarkWithdrawn(ctx, l.ID, time.Now().UTC()))
	}
}

func TestStore_Events(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("append and list", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		lockID := int64(1)
		err := store.AppendEvent(ctx, &Event{
			Type:            "lock_created",
			LockID:          &lockID,
			PositionTokenID: "7",
			Caller:          "0x2000000000000000000000000000000000000002",
			Details:         map[string]string{"payment": "10000000000000000"},
			CreatedAt:       now,
		})
		require.NoError(t, err)

		err = store.AppendEvent(ctx, &Event{
			Type:      "lock_fee_updated",
			Caller:    "0x1000000000000000000000000000000000000001",
			CreatedAt: now.Add(time.Second),
		})
		require.NoError(t, err)

		got, err := store.ListEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)

		// Newest first
		assert.Equal(t, "lock_fee_updated", got[0].Type)
		assert.Nil(t, got[0].LockID)

		assert.Equal(t, "lock_created", got[1].Type)
		require.NotNil(t, got[1].LockID)
		assert.Equal(t, lockID, *got[1].LockID)
		assert.Equal(t, "10000000000000000", got[1].Details["payment"])
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.ListEvents(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
