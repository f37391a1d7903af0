package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAlertArguments(t *testing.T) {
	t.Run("instrument price and message", func(t *testing.T) {
		instrument, target, message := ParseAlertArguments("R_10 101.50 wake me up")
		assert.Equal(t, "R_10", instrument)
		assert.Equal(t, "101.50", target)
		assert.Equal(t, "wake me up", message)
	})

	t.Run("message is optional", func(t *testing.T) {
		instrument, target, message := ParseAlertArguments("R_10 101.50")
		assert.Equal(t, "R_10", instrument)
		assert.Equal(t, "101.50", target)
		assert.Empty(t, message)
	})

	t.Run("extra whitespace is tolerated", func(t *testing.T) {
		instrument, target, message := ParseAlertArguments("  R_10   101.50   hello   world ")
		assert.Equal(t, "R_10", instrument)
		assert.Equal(t, "101.50", target)
		assert.Equal(t, "hello world", message)
	})

	t.Run("too few arguments", func(t *testing.T) {
		instrument, target, message := ParseAlertArguments("R_10")
		assert.Empty(t, instrument)
		assert.Empty(t, target)
		assert.Empty(t, message)
	})

	t.Run("empty input", func(t *testing.T) {
		instrument, _, _ := ParseAlertArguments("")
		assert.Empty(t, instrument)
	})
}

func TestEmailValidation(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.domain.org"}
	for _, email := range valid {
		assert.True(t, emailRe.MatchString(email), email)
	}

	invalid := []string{"", "no-at-sign", "two@@example.com", "user@nodot", "spaces in@example.com"}
	for _, email := range invalid {
		assert.False(t, emailRe.MatchString(email), email)
	}
}
