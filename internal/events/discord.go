package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordNotifier mirrors audit events to a Discord channel via webhooks.
// The anti-rug-pull audience watches these channels.
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
}

// DiscordMessage represents a Discord webhook message.
type DiscordMessage struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
}

// DiscordEmbedField represents a field in a Discord embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Discord embed colors.
const (
	colorGreen  = 0x2ECC71
	colorBlue   = 0x3498DB
	colorOrange = 0xE67E22
)

// NewDiscordNotifier creates a new Discord notifier.
func NewDiscordNotifier(webhookURL, username string) *DiscordNotifier {
	if username == "" {
		username = "lplocker"
	}
	return &DiscordNotifier{
		webhookURL: webhookURL,
		username:   username,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (d *DiscordNotifier) Name() string {
	return "discord"
}

// Send posts the event as a Discord embed.
func (d *DiscordNotifier) Send(ctx context.Context, event Event) error {
	embed := DiscordEmbed{
		Title:       embedTitle(event.Type),
		Description: FormatMessage(event),
		Color:       embedColor(event.Type),
		Timestamp:   event.Timestamp.Format(time.RFC3339),
	}

	if event.Caller != "" {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name: "Caller", Value: event.Caller, Inline: true,
		})
	}
	if event.TokenID != "" {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name: "Position", Value: event.TokenID, Inline: true,
		})
	}

	msg := DiscordMessage{
		Username: d.username,
		Embeds:   []DiscordEmbed{embed},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := retryableSend(ctx, d.client, req, 2)
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources.
func (d *DiscordNotifier) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func embedTitle(t Type) string {
	switch t {
	case TypeLockCreated:
		return "🔒 Liquidity Locked"
	case TypeFeesCollected:
		return "💰 Fees Collected"
	case TypeUnlocked:
		return "🔓 Liquidity Unlocked"
	case TypeLockFeeUpdated:
		return "⚙️ Lock Fee Updated"
	case TypeFeeCollectorUpdated:
		return "⚙️ Fee Collector Updated"
	default:
		return string(t)
	}
}

func embedColor(t Type) int {
	switch t {
	case TypeLockCreated:
		return colorGreen
	case TypeUnlocked:
		return colorOrange
	default:
		return colorBlue
	}
}
