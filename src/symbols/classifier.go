package symbols

import (
	"fmt"
	"strings"

	"market-relay/src/helpers"
	"market-relay/src/models"
)

const maxSymbolLen = 20

// quote-currency suffixes stripped from crypto pair spellings, longest first
var cryptoQuoteSuffixes = []string{"-USDT", "/USDT", "USDT", "-USD", "/USD", "USD"}

// -----------------------------------------------------------------------------

// Normalize returns the canonical upper-case form of symbol:
// crypto collapses to its base asset (BTC-USD -> BTC), forex to a six-letter
// pair (EUR/USD -> EURUSD), equities keep their ticker.
func Normalize(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", helpers.NewValidationError(helpers.ErrInvalidSymbol, "symbol is empty")
	}
	if len(s) > maxSymbolLen {
		return "", helpers.NewValidationError(helpers.ErrInvalidSymbol, fmt.Sprintf("symbol %q is too long", symbol))
	}
	for _, r := range s {
		if !validRune(r) {
			return "", helpers.NewValidationError(helpers.ErrInvalidSymbol, fmt.Sprintf("symbol %q contains %q", symbol, r))
		}
	}

	if _, ok := cryptoBySymbol[s]; ok {
		return s, nil
	}
	if pair, ok := forexForm(s); ok {
		return pair, nil
	}
	if base, ok := cryptoForm(s); ok {
		return base, nil
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// Classify is total: anything not recognised as crypto or forex is an equity.
func Classify(symbol string) models.AssetClass {
	s, err := Normalize(symbol)
	if err != nil {
		return models.AssetEquity
	}
	if _, ok := cryptoBySymbol[s]; ok {
		return models.AssetCrypto
	}
	if _, ok := forexSet[s]; ok {
		return models.AssetForex
	}
	return models.AssetEquity
}

// ChannelFor maps an asset class to its broadcast channel.
func ChannelFor(class models.AssetClass) models.Channel {
	switch class {
	case models.AssetCrypto:
		return models.ChannelCrypto
	case models.AssetForex:
		return models.ChannelCurrencies
	default:
		return models.ChannelEquities
	}
}

// -----------------------------------------------------------------------------

func forexForm(s string) (string, bool) {
	s = strings.TrimSuffix(s, "=X")
	s = strings.NewReplacer("/", "", "-", "").Replace(s)
	_, ok := forexSet[s]
	return s, ok
}

func cryptoForm(s string) (string, bool) {
	for _, suffix := range cryptoQuoteSuffixes {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		base := strings.TrimSuffix(s, suffix)
		if _, ok := cryptoBySymbol[base]; ok {
			return base, true
		}
	}
	return "", false
}

func validRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '/', r == '=', r == '^':
		return true
	}
	return false
}
