package notify

import (
	"fmt"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/internal/instruments"
	"deriv-alert-bot/internal/types"
	"deriv-alert-bot/lib/helpers"
	"deriv-alert-bot/lib/translation"
)

// EmailSender delivers a rendered alert by email.
type EmailSender interface {
	SendEmail(subject, body, destination string) error
}

// ChatSender delivers a rendered alert to a Telegram chat.
type ChatSender interface {
	SendAlert(chatID int64, text string) error
}

// Dispatcher fans a firing alert out to every channel configured on it. Each
// channel is attempted independently; one channel's failure never prevents the
// others, and Dispatch never propagates an error to its caller. Delivery is
// a single attempt per firing, retries are the transport's concern.
type Dispatcher struct {
	email EmailSender
	chat  ChatSender
}

func NewDispatcher(email EmailSender, chat ChatSender) *Dispatcher {
	return &Dispatcher{email: email, chat: chat}
}

// Dispatch delivers the firing notification on all configured channels and
// returns the channels that failed.
func (d *Dispatcher) Dispatch(alert types.Alert, price float64) []types.Channel {
	var (
		mu     sync.Mutex
		failed []types.Channel
		wg     sync.WaitGroup
	)

	fail := func(channel types.Channel, err error) {
		log.Errorf("failed to deliver %s notification for chat %d: %v", channel, alert.ChatID, err)
		mu.Lock()
		failed = append(failed, channel)
		mu.Unlock()
	}

	for _, channel := range alert.Channels() {
		wg.Add(1)
		go func(channel types.Channel) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(channel, fmt.Errorf("panic in transport: %v", r))
				}
			}()

			var err error
			switch channel {
			case types.ChannelEmail:
				err = d.email.SendEmail(
					translation.Translate("Price Alert Triggered"),
					renderEmailBody(alert, price),
					alert.Email,
				)
			case types.ChannelTelegram:
				err = d.chat.SendAlert(alert.ChatID, renderChatText(alert, price))
			}

			if err != nil {
				fail(channel, err)
			} else {
				log.Debugf("%s notification delivered for chat %d", channel, alert.ChatID)
			}
		}(channel)
	}

	wg.Wait()
	return failed
}

func renderEmailBody(alert types.Alert, price float64) string {
	return fmt.Sprintf(
		"%s - %s has reached your alert level: %s.",
		alert.Message,
		instruments.DisplayName(alert.Instrument),
		strconv.FormatFloat(price, 'f', -1, 64),
	)
}

func renderChatText(alert types.Alert, price float64) string {
	return fmt.Sprintf(
		"🚨 *Price Alert Triggered*\n\n*%s \\(%s\\)* has reached *%s*\nTarget: *%s*\n\n%s",
		helpers.EscapeMarkdownV2(instruments.DisplayName(alert.Instrument)),
		helpers.EscapeMarkdownV2(alert.Instrument),
		helpers.FormatPriceUS(price, true),
		helpers.FormatPriceUS(alert.Target, true),
		helpers.EscapeMarkdownV2(alert.Message),
	)
}
