package events

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier records received events and supports error injection.
type mockNotifier struct {
	mu       sync.Mutex
	name     string
	received []Event
	sendErr  error
	closed   bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, event)
	return nil
}

func (m *mockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func TestManager_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to all notifiers", func(t *testing.T) {
		manager := NewManager()
		a := &mockNotifier{name: "a"}
		b := &mockNotifier{name: "b"}
		manager.Register(a)
		manager.Register(b)
		assert.Equal(t, 2, manager.Count())

		err := manager.Notify(ctx, Event{Type: TypeLockCreated, LockID: 1, TokenID: "7"})
		require.NoError(t, err)
		assert.Equal(t, 1, a.count())
		assert.Equal(t, 1, b.count())
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		manager := NewManager()
		failing := &mockNotifier{name: "failing", sendErr: fmt.Errorf("unreachable")}
		ok := &mockNotifier{name: "ok"}
		manager.Register(failing)
		manager.Register(ok)

		err := manager.Notify(ctx, Event{Type: TypeUnlocked, LockID: 2})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failing")
		assert.Equal(t, 1, ok.count())
	})

	t.Run("fills in missing timestamp", func(t *testing.T) {
		manager := NewManager()
		n := &mockNotifier{name: "n"}
		manager.Register(n)

		require.NoError(t, manager.Notify(ctx, Event{Type: TypeFeesCollected}))
		require.Equal(t, 1, n.count())
		assert.False(t, n.received[0].Timestamp.IsZero())
	})

	t.Run("no notifiers is a no-op", func(t *testing.T) {
		manager := NewManager()
		assert.Zero(t, manager.Count())
		assert.NoError(t, manager.Notify(ctx, Event{Type: TypeLockCreated}))
	})

	t.Run("close closes all notifiers", func(t *testing.T) {
		manager := NewManager()
		a := &mockNotifier{name: "a"}
		b := &mockNotifier{name: "b"}
		manager.Register(a)
		manager.Register(b)

		require.NoError(t, manager.Close())
		assert.True(t, a.closed)
		assert.True(t, b.closed)
	})
}

func TestFormatMessage(t *testing.T) {
	t.Run("lock created", func(t *testing.T) {
		msg := FormatMessage(Event{
			Type:    TypeLockCreated,
			LockID:  3,
			TokenID: "7",
			Details: map[string]string{"unlock_at": "2026-03-02T12:00:00Z"},
		})
		assert.Contains(t, msg, "Lock #3")
		assert.Contains(t, msg, "position 7")
		assert.Contains(t, msg, "2026-03-02T12:00:00Z")
	})

	t.Run("fees collected", func(t *testing.T) {
		msg := FormatMessage(Event{
			Type:    TypeFeesCollected,
			LockID:  3,
			Details: map[string]string{"amount0": "100", "amount1": "200"},
		})
		assert.Contains(t, msg, "100")
		assert.Contains(t, msg, "200")
	})

	t.Run("unlocked", func(t *testing.T) {
		msg := FormatMessage(Event{
			Type:    TypeUnlocked,
			LockID:  3,
			TokenID: "7",
			Details: map[string]string{"recipient": "0xabc"},
		})
		assert.Contains(t, msg, "withdrawn")
		assert.Contains(t, msg, "0xabc")
	})

	t.Run("unknown type falls back", func(t *testing.T) {
		msg := FormatMessage(Event{Type: Type("mystery"), LockID: 9})
		assert.Contains(t, msg, "mystery")
	})
}

func TestEmbedHelpers(t *testing.T) {
	assert.Equal(t, colorGreen, embedColor(TypeLockCreated))
	assert.Equal(t, colorOrange, embedColor(TypeUnlocked))
	assert.Equal(t, colorBlue, embedColor(TypeFeesCollected))

	assert.Contains(t, embedTitle(TypeLockCreated), "Locked")
	assert.Equal(t, "mystery", embedTitle(Type("mystery")))
}
