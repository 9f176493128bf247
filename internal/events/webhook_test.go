package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhookNotifier(t *testing.T) {
	t.Run("creates notifier with correct config", func(t *testing.T) {
		headers := map[string]string{"Authorization": "Bearer token123"}
		notifier := NewWebhookNotifier("https://example.com/webhook", headers)

		require.NotNil(t, notifier)
		assert.Equal(t, "https://example.com/webhook", notifier.url)
		assert.Equal(t, headers, notifier.headers)
		assert.NotNil(t, notifier.client)
		assert.Equal(t, "webhook", notifier.Name())
	})
}

func TestWebhookNotifier_Send(t *testing.T) {
	event := Event{
		Type:      TypeLockCreated,
		LockID:    3,
		TokenID:   "7",
		Caller:    "0x2000000000000000000000000000000000000002",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Details: map[string]string{
			"unlock_at": "2026-03-02T12:00:00Z",
			"payment":   "10000000000000000",
		},
	}

	t.Run("posts the formatted payload", func(t *testing.T) {
		var receivedPayload WebhookPayload
		var receivedHeaders http.Header
		var mu sync.Mutex

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			receivedHeaders = r.Header.Clone()
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusInternalServerError)
				return
			}
			if err := json.Unmarshal(body, &receivedPayload); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewWebhookNotifier(server.URL, map[string]string{"X-Custom": "value"})
		require.NoError(t, notifier.Send(context.Background(), event))

		assert.Equal(t, "lock_created", receivedPayload.Type)
		assert.Equal(t, int64(3), receivedPayload.LockID)
		assert.Equal(t, "7", receivedPayload.TokenID)
		assert.Equal(t, "2026-03-01T12:00:00Z", receivedPayload.Timestamp)
		assert.Equal(t, "10000000000000000", receivedPayload.Details["payment"])
		assert.Contains(t, receivedPayload.Message, "Lock #3")

		assert.Equal(t, "application/json", receivedHeaders.Get("Content-Type"))
		assert.Equal(t, "value", receivedHeaders.Get("X-Custom"))
	})

	t.Run("non-2xx without retry for client errors", func(t *testing.T) {
		var calls int
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls++
			mu.Unlock()
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		notifier := NewWebhookNotifier(server.URL, nil)
		err := notifier.Send(context.Background(), event)
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewWebhookNotifier(server.URL, nil)
		require.NoError(t, notifier.Send(context.Background(), event))
		assert.Equal(t, 2, calls)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		notifier := NewWebhookNotifier("http://127.0.0.1:1/webhook", nil)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		assert.Error(t, notifier.Send(ctx, event))
	})
}

func TestDiscordNotifier_Send(t *testing.T) {
	t.Run("posts an embed", func(t *testing.T) {
		var received DiscordMessage
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &received)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		notifier := NewDiscordNotifier(server.URL, "")
		assert.Equal(t, "discord", notifier.Name())

		err := notifier.Send(context.Background(), Event{
			Type:      TypeUnlocked,
			LockID:    5,
			TokenID:   "42",
			Caller:    "0x2000000000000000000000000000000000000002",
			Timestamp: time.Now(),
			Details:   map[string]string{"recipient": "0x2000000000000000000000000000000000000002"},
		})
		require.NoError(t, err)

		assert.Equal(t, "lplocker", received.Username)
		require.Len(t, received.Embeds, 1)
		assert.Equal(t, colorOrange, received.Embeds[0].Color)
		assert.Contains(t, received.Embeds[0].Description, "Lock #5")
		require.Len(t, received.Embeds[0].Fields, 2)
		assert.Equal(t, "Caller", received.Embeds[0].Fields[0].Name)
		assert.Equal(t, "Position", received.Embeds[0].Fields[1].Name)
	})

	t.Run("custom username", func(t *testing.T) {
		notifier := NewDiscordNotifier("https://example.com", "vault-bot")
		assert.Equal(t, "vault-bot", notifier.username)
	})
}
