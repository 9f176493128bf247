// Package oplock serializes mutating vault operations across processes with
// a file lock and PID-based stale detection.
package oplock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/lockboxlabs/lplocker/internal/errors"
)

const lockName = "vault.lock"

// Lock represents the held vault lock.
type Lock struct {
	flock    *flock.Flock
	pidFile  string
	lockPath string
}

// Manager acquires the vault-wide operation lock for a data directory.
type Manager struct {
	lockDir string
}

// NewManager creates a lock manager rooted at the data directory.
func NewManager(dataDir string) (*Manager, error) {
	lockDir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(lockDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Manager{lockDir: lockDir}, nil
}

// Acquire takes the vault lock, cleaning up a stale lock left by a dead
// process first. It fails with ErrVaultLocked if another live process holds
// it.
func (m *Manager) Acquire(ctx context.Context) (*Lock, error) {
	lockPath := filepath.Join(m.lockDir, lockName)
	pidFile := lockPath + ".pid"

	m.cleanStaleLock(pidFile, lockPath)

	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire vault lock: %w", err)
	}
	if !locked {
		if pid, err := readPIDFile(pidFile); err == nil {
			return nil, fmt.Errorf("%w: held by PID %d", errors.ErrVaultLocked, pid)
		}
		return nil, errors.ErrVaultLocked
	}

	if err := writePIDFile(pidFile); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &Lock{flock: fl, pidFile: pidFile, lockPath: lockPath}, nil
}

// Release releases the vault lock.
func (l *Lock) Release() error {
	os.Remove(l.pidFile)
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release vault lock: %w", err)
	}
	os.Remove(l.lockPath)
	return nil
}

// cleanStaleLock removes a lock whose owning process is gone.
func (m *Manager) cleanStaleLock(pidFile, lockPath string) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return
	}
	if isProcessRunning(pid) {
		return
	}
	os.Remove(pidFile)
	os.Remove(lockPath)
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix FindProcess always succeeds; probe with a null signal.
	err = proc.Signal(os.Signal(nil))
	if err == nil {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "process already finished") ||
		strings.Contains(errStr, "no such process") ||
		strings.Contains(errStr, "Access is denied") {
		return false
	}

	return true
}
