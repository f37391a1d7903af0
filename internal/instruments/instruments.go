package instruments

import (
	"sort"
	"strings"
)

// supported maps Deriv instrument symbols to display names. Commands validate
// against this table before anything reaches the registry or the feed.
var supported = map[string]string{
	"R_10":      "Volatility 10 Index",
	"R_25":      "Volatility 25 Index",
	"R_50":      "Volatility 50 Index",
	"R_75":      "Volatility 75 Index",
	"R_100":     "Volatility 100 Index",
	"1HZ10V":    "Volatility 10 (1s) Index",
	"1HZ25V":    "Volatility 25 (1s) Index",
	"1HZ50V":    "Volatility 50 (1s) Index",
	"1HZ75V":    "Volatility 75 (1s) Index",
	"1HZ100V":   "Volatility 100 (1s) Index",
	"1HZ150V":   "Volatility 150 (1s) Index",
	"1HZ250V":   "Volatility 250 (1s) Index",
	"BOOM300N":  "Boom 300 Index",
	"BOOM500N":  "Boom 500 Index",
	"BOOM1000":  "Boom 1000 Index",
	"CRASH300N": "Crash 300 Index",
	"CRASH500":  "Crash 500 Index",
	"CRASH1000": "Crash 1000 Index",
	"JD10":      "Jump 10 Index",
	"JD25":      "Jump 25 Index",
	"JD50":      "Jump 50 Index",
	"JD75":      "Jump 75 Index",
	"JD100":     "Jump 100 Index",
}

// IsSupported reports whether symbol is a recognized instrument.
func IsSupported(symbol string) bool {
	_, ok := supported[Normalize(symbol)]
	return ok
}

// Normalize maps user input to the canonical symbol spelling.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// DisplayName returns the human readable name for a symbol.
func DisplayName(symbol string) string {
	if name, ok := supported[Normalize(symbol)]; ok {
		return name
	}
	return symbol
}

// Symbols returns all supported symbols in stable order.
func Symbols() []string {
	symbols := make([]string, 0, len(supported))
	for s := range supported {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
