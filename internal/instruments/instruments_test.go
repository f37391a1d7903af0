package instruments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("R_10"))
	assert.True(t, IsSupported("r_10"), "lookup is case insensitive")
	assert.True(t, IsSupported(" BOOM1000 "), "surrounding whitespace is tolerated")
	assert.False(t, IsSupported("BTCUSDT"))
	assert.False(t, IsSupported(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "R_10", Normalize(" r_10 "))
	assert.Equal(t, "1HZ100V", Normalize("1hz100v"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Volatility 10 Index", DisplayName("R_10"))
	assert.Equal(t, "Jump 50 Index", DisplayName("jd50"))
	assert.Equal(t, "UNKNOWN", DisplayName("UNKNOWN"), "unknown symbols fall back to themselves")
}

func TestSymbols(t *testing.T) {
	symbols := Symbols()
	assert.Len(t, symbols, 23)
	assert.Contains(t, symbols, "R_100")
	assert.Contains(t, symbols, "CRASH1000")

	again := Symbols()
	assert.Equal(t, symbols, again, "order is stable")
}
