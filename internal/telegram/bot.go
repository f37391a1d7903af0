package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/database"
	"deriv-alert-bot/internal/instruments"
	"deriv-alert-bot/internal/types"
	"deriv-alert-bot/lib/helpers"
	"deriv-alert-bot/lib/translation"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// SetAlertService attaches the alert engine. Must be called before updates
// are handled.
func (b *Bot) SetAlertService(service AlertService) {
	b.service = service
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// SendAlert delivers a firing notification to a chat. This is the chat
// transport used by the notification dispatcher.
func (b *Bot) SendAlert(chatID int64, text string) error {
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ParseAlertArguments splits "/setalert" arguments into instrument, target
// price and the optional custom message.
func ParseAlertArguments(args string) (string, string, string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", ""
	}
	return fields[0], fields[1], strings.Join(fields[2:], " ")
}

// HandleUpdate processes Telegram updates
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	log.Debugf("received command: %s", u.Message.Command())

	chatID := u.Message.Chat.ID

	switch u.Message.Command() {
	case "start":
		return b.handleStart(chatID)
	case "instruments":
		return b.handleInstruments()
	case "setemail":
		return b.handleSetEmail(chatID, u.Message.CommandArguments())
	case "setalert":
		return b.handleSetAlert(chatID, u.Message.CommandArguments())
	case "cancelalert":
		return b.handleCancelAlert(chatID, u.Message.CommandArguments())
	case "alerts":
		return b.handleAlertList(chatID)
	}

	return helpers.EscapeMarkdownV2(translation.Translate(
		"Commands: /setalert <instrument> <price> [message], /cancelalert <instrument>, /alerts, /setemail <address>, /instruments"))
}

func (b *Bot) handleStart(chatID int64) string {
	var sb strings.Builder
	sb.WriteString(helpers.EscapeMarkdownV2(translation.Translate(
		"Welcome to the Deriv Alert Bot! Use /setalert to create a price alert or /instruments to see the list of available instruments.")))

	email, err := database.GetUserEmail(chatID)
	if err != nil {
		log.Errorf("failed to load email for chat %d: %v", chatID, err)
	}
	if email != "" {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(
			helpers.EscapeMarkdownV2(translation.Translate("Welcome back! Your saved email is %s.")),
			helpers.EscapeMarkdownV2(email),
		))
	}

	if alerts := b.service.ActiveAlerts(chatID); len(alerts) > 0 {
		sb.WriteString("\n")
		sb.WriteString(b.handleAlertList(chatID))
	}

	return sb.String()
}

func (b *Bot) handleInstruments() string {
	var sb strings.Builder
	sb.WriteString(helpers.EscapeMarkdownV2(translation.Translate("Available instruments:")) + "\n")
	for _, symbol := range instruments.Symbols() {
		sb.WriteString(fmt.Sprintf("`%s` %s\n", symbol, helpers.EscapeMarkdownV2(instruments.DisplayName(symbol))))
	}
	return sb.String()
}

func (b *Bot) handleSetEmail(chatID int64, args string) string {
	email := strings.TrimSpace(args)
	if !emailRe.MatchString(email) {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /setemail <address>"))
	}

	if err := database.SetUserEmail(chatID, email); err != nil {
		log.Errorf("failed to save email for chat %d: %v", chatID, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to save email. Please try again later."))
	}

	return fmt.Sprintf(
		helpers.EscapeMarkdownV2(translation.Translate("Email set to %s. You will now receive alerts by email as well as Telegram.")),
		helpers.EscapeMarkdownV2(email),
	)
}

func (b *Bot) handleSetAlert(chatID int64, args string) string {
	symbol, target, message := ParseAlertArguments(args)
	if symbol == "" || target == "" {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /setalert <instrument> <price> [message]"))
	}

	if !instruments.IsSupported(symbol) {
		return helpers.EscapeMarkdownV2(translation.Translate("Invalid instrument. Use /instruments to see valid options."))
	}
	symbol = instruments.Normalize(symbol)

	targetPrice, err := strconv.ParseFloat(target, 64)
	if err != nil {
		return helpers.EscapeMarkdownV2(translation.Translate("Invalid price. Please enter a numeric value."))
	}

	email, err := database.GetUserEmail(chatID)
	if err != nil {
		log.Errorf("failed to load email for chat %d: %v", chatID, err)
	}

	_, replaced := b.service.CreateOrReplaceAlert(types.Alert{
		ChatID:     chatID,
		Instrument: symbol,
		Target:     targetPrice,
		Message:    message,
		Email:      email,
		CreatedAt:  time.Now(),
	})

	msgID := "Alert set for %s at %s."
	if replaced {
		msgID = "Alert replaced for %s, now at %s."
	}

	text := fmt.Sprintf(
		helpers.EscapeMarkdownV2(translation.Translate(msgID)),
		helpers.EscapeMarkdownV2(instruments.DisplayName(symbol)),
		helpers.FormatPriceUS(targetPrice, true),
	)
	if email == "" {
		text += "\n" + helpers.EscapeMarkdownV2(translation.Translate(
			"No email saved; you will be notified on Telegram only. Use /setemail to add one."))
	}
	return text
}

func (b *Bot) handleCancelAlert(chatID int64, args string) string {
	symbol := strings.TrimSpace(args)
	if symbol == "" {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /cancelalert <instrument>"))
	}

	if !instruments.IsSupported(symbol) {
		return helpers.EscapeMarkdownV2(translation.Translate("Invalid instrument. Use /instruments to see valid options."))
	}
	symbol = instruments.Normalize(symbol)

	if !b.service.CancelAlert(chatID, symbol) {
		return fmt.Sprintf(
			helpers.EscapeMarkdownV2(translation.Translate("No active alert for %s.")),
			helpers.EscapeMarkdownV2(instruments.DisplayName(symbol)),
		)
	}

	return fmt.Sprintf(
		helpers.EscapeMarkdownV2(translation.Translate("Alert for %s cancelled.")),
		helpers.EscapeMarkdownV2(instruments.DisplayName(symbol)),
	)
}

func (b *Bot) handleAlertList(chatID int64) string {
	alerts := b.service.ActiveAlerts(chatID)
	if len(alerts) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("No active alerts. Use /setalert to create one."))
	}

	var sb strings.Builder
	sb.WriteString(helpers.EscapeMarkdownV2(translation.Translate("Your active alerts:")) + "\n")
	for _, alert := range alerts {
		line := fmt.Sprintf("• *%s* at *%s*",
			helpers.EscapeMarkdownV2(instruments.DisplayName(alert.Instrument)),
			helpers.FormatPriceUS(alert.Target, true),
		)
		if alert.Message != "" {
			line += fmt.Sprintf(" \\- %s", helpers.EscapeMarkdownV2(alert.Message))
		}
		line += fmt.Sprintf(" _%s_", helpers.EscapeMarkdownV2(humanize.Time(alert.CreatedAt)))
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
