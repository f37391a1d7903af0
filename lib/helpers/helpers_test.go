package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, "101\\.50", EscapeMarkdownV2("101.50"))
	assert.Equal(t, "R\\_10", EscapeMarkdownV2("R_10"))
	assert.Equal(t, "hello world", EscapeMarkdownV2("hello world"))
	assert.Equal(t, "\\!\\*\\[\\]", EscapeMarkdownV2("!*[]"))
}

func TestFormatPriceUS(t *testing.T) {
	assert.Equal(t, "101.50", FormatPriceUS(101.5, false))
	assert.Equal(t, "1,000", FormatPriceUS(1000, false))
	assert.Equal(t, "0.500000", FormatPriceUS(0.5, false))
	assert.Equal(t, "101\\.50", FormatPriceUS(101.5, true))
}
