package oplock

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) (*Manager, string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "lplocker-oplock-test-*")
	require.NoError(t, err)

	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return manager, tmpDir, cleanup
}

func TestManager_AcquireAndRelease(t *testing.T) {
	manager, tmpDir, cleanup := setupTestManager(t)
	defer cleanup()

	ctx := context.Background()

	lock, err := manager.Acquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, lock)

	// PID file holds our pid
	pidPath := filepath.Join(tmpDir, "locks", lockName+".pid")
	data, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(data))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, lock.Release())

	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))

	// Reacquirable after release
	lock2, err := manager.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestManager_SecondAcquireBlocked(t *testing.T) {
	manager, _, cleanup := setupTestManager(t)
	defer cleanup()

	lock, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	defer lock.Release()

	// The holder's pid is alive, so the stale check leaves the lock in place
	// and a second acquire cannot get it.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = manager.Acquire(ctx)
	assert.Error(t, err)
}

func TestManager_CleansStaleLock(t *testing.T) {
	manager, tmpDir, cleanup := setupTestManager(t)
	defer cleanup()

	lockPath := filepath.Join(tmpDir, "locks", lockName)
	pidPath := lockPath + ".pid"

	// Simulate a dead holder: a pid that cannot be running.
	require.NoError(t, os.WriteFile(lockPath, nil, 0644))
	require.NoError(t, os.WriteFile(pidPath, []byte("4194304"), 0644))

	lock, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
