package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deriv-alert-bot/internal/types"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// AlertService is the command boundary into the alert engine. Instruments are
// validated before any of these are called.
type AlertService interface {
	CreateOrReplaceAlert(alert types.Alert) (types.Alert, bool)
	CancelAlert(chatID int64, instrument string) bool
	ActiveAlerts(chatID int64) []types.Alert
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	service AlertService
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
