package types

import "time"

// Channel identifies a notification delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

// Alert is one chat's standing request to be notified when an instrument
// reaches a target price. At most one alert exists per (chat, instrument)
// pair; setting a new one replaces the old.
type Alert struct {
	ChatID     int64     `json:"chat_id"`
	Instrument string    `json:"instrument"`
	Target     float64   `json:"target"`
	Message    string    `json:"message"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Channels returns the delivery channels configured on the alert. Telegram
// is always included; email only when the chat has a saved address.
func (a Alert) Channels() []Channel {
	channels := []Channel{ChannelTelegram}
	if a.Email != "" {
		channels = append(channels, ChannelEmail)
	}
	return channels
}

// TickEvent is a single decoded price observation from the feed.
type TickEvent struct {
	Instrument string
	Price      float64
	Timestamp  time.Time
}
