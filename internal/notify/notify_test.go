package notify

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"deriv-alert-bot/internal/types"
)

type fakeEmail struct {
	mu     sync.Mutex
	sent   []string // destination
	bodies []string
	err    error
	panics bool
}

func (f *fakeEmail) SendEmail(subject, body, destination string) error {
	if f.panics {
		panic("smtp transport exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, destination)
	f.bodies = append(f.bodies, body)
	return f.err
}

type fakeChat struct {
	mu   sync.Mutex
	sent []int64
	text []string
	err  error
}

func (f *fakeChat) SendAlert(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chatID)
	f.text = append(f.text, text)
	return f.err
}

func alertWithEmail() types.Alert {
	return types.Alert{
		ChatID:     42,
		Instrument: "R_10",
		Target:     101.5,
		Message:    "big move incoming",
		Email:      "user@example.com",
	}
}

func TestDispatchAllChannels(t *testing.T) {
	email := &fakeEmail{}
	chat := &fakeChat{}
	d := NewDispatcher(email, chat)

	failed := d.Dispatch(alertWithEmail(), 101.5)

	assert.Empty(t, failed)
	assert.Equal(t, []string{"user@example.com"}, email.sent)
	assert.Equal(t, []int64{42}, chat.sent)
	assert.Contains(t, email.bodies[0], "101.5")
	assert.Contains(t, email.bodies[0], "big move incoming")
	assert.Contains(t, chat.text[0], "101\\.50")
}

func TestDispatchTelegramOnlyWithoutEmail(t *testing.T) {
	email := &fakeEmail{}
	chat := &fakeChat{}
	d := NewDispatcher(email, chat)

	alert := alertWithEmail()
	alert.Email = ""
	failed := d.Dispatch(alert, 101.5)

	assert.Empty(t, failed)
	assert.Empty(t, email.sent)
	assert.Equal(t, []int64{42}, chat.sent)
}

func TestDispatchFailuresAreIndependent(t *testing.T) {
	t.Run("email failure does not block chat", func(t *testing.T) {
		email := &fakeEmail{err: errors.New("smtp refused")}
		chat := &fakeChat{}
		d := NewDispatcher(email, chat)

		failed := d.Dispatch(alertWithEmail(), 101.5)

		assert.Equal(t, []types.Channel{types.ChannelEmail}, failed)
		assert.Equal(t, []int64{42}, chat.sent)
	})

	t.Run("chat failure does not block email", func(t *testing.T) {
		email := &fakeEmail{}
		chat := &fakeChat{err: errors.New("telegram down")}
		d := NewDispatcher(email, chat)

		failed := d.Dispatch(alertWithEmail(), 101.5)

		assert.Equal(t, []types.Channel{types.ChannelTelegram}, failed)
		assert.Equal(t, []string{"user@example.com"}, email.sent)
	})

	t.Run("both can fail", func(t *testing.T) {
		email := &fakeEmail{err: errors.New("smtp refused")}
		chat := &fakeChat{err: errors.New("telegram down")}
		d := NewDispatcher(email, chat)

		failed := d.Dispatch(alertWithEmail(), 101.5)
		assert.Len(t, failed, 2)
	})
}

func TestDispatchNeverPanics(t *testing.T) {
	email := &fakeEmail{panics: true}
	chat := &fakeChat{}
	d := NewDispatcher(email, chat)

	var failed []types.Channel
	assert.NotPanics(t, func() {
		failed = d.Dispatch(alertWithEmail(), 101.5)
	})
	assert.Equal(t, []types.Channel{types.ChannelEmail}, failed)
	assert.Equal(t, []int64{42}, chat.sent)
}
