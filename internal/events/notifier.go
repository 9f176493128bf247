// Package events defines the audit events emitted by the lock registry and
// the notification backends that mirror them to outside observers.
package events

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event is a single audit event. Every successful mutating operation emits
// exactly one.
type Event struct {
	Type      Type
	LockID    int64
	TokenID   string
	Caller    string
	Timestamp time.Time
	Details   map[string]string
}

// Type identifies the kind of audit event.
type Type string

const (
	TypeLockCreated         Type = "lock_created"
	TypeFeesCollected       Type = "fees_collected"
	TypeUnlocked            Type = "unlocked"
	TypeLockFeeUpdated      Type = "lock_fee_updated"
	TypeFeeCollectorUpdated Type = "fee_collector_updated"
)

// Notifier is the interface for notification backends.
type Notifier interface {
	// Name returns the name of the notifier.
	Name() string

	// Send sends a notification event.
	Send(ctx context.Context, event Event) error

	// Close cleans up any resources.
	Close() error
}

// Manager fans out events to the registered notification backends.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
	}
}

// Register adds a notifier to the manager.
func (m *Manager) Register(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends an event to all registered notifiers.
func (m *Manager) Notify(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, n := range m.notifiers {
		wg.Add(1)
		go func(notifier Notifier) {
			defer wg.Done()
			if err := notifier.Send(ctx, event); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// Close closes all registered notifiers.
func (m *Manager) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Count returns the number of registered notifiers.
func (m *Manager) Count() int {
	return len(m.notifiers)
}

// FormatMessage creates a human-readable message from an event.
func FormatMessage(event Event) string {
	switch event.Type {
	case TypeLockCreated:
		return fmt.Sprintf("🔒 Lock #%d created for position %s, unlocks at %s",
			event.LockID, event.TokenID, event.Details["unlock_at"])
	case TypeFeesCollected:
		return fmt.Sprintf("💰 Fees collected on lock #%d: %s / %s",
			event.LockID, event.Details["amount0"], event.Details["amount1"])
	case TypeUnlocked:
		return fmt.Sprintf("🔓 Lock #%d withdrawn, position %s returned to %s",
			event.LockID, event.TokenID, event.Details["recipient"])
	case TypeLockFeeUpdated:
		return fmt.Sprintf("⚙️ Lock fee changed to %s wei", event.Details["lock_fee"])
	case TypeFeeCollectorUpdated:
		return fmt.Sprintf("⚙️ Fee collector changed to %s", event.Details["fee_collector"])
	default:
		return fmt.Sprintf("[%s] lock #%d", event.Type, event.LockID)
	}
}

// retryableSend executes an HTTP request with retry logic for transient failures.
func retryableSend(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Don't retry client errors (4xx), only server errors (5xx)
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
