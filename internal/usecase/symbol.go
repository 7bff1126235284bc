package usecase

import (
	"strings"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const swapSuffix = "-USDT-SWAP"

// ToOKXSymbol converts a bare concatenated symbol (BTCUSDT) to the
// hyphenated swap form (BTC-USDT-SWAP). Already-converted symbols
// pass through unchanged, so applying it twice is a no-op.
func ToOKXSymbol(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	if base, ok := strings.CutSuffix(symbol, "USDT"); ok && base != "" {
		return base + swapSuffix
	}
	return symbol
}

// ToAsterSymbol is the reverse transform: BTC-USDT-SWAP → BTCUSDT.
// Idempotent for the same reason.
func ToAsterSymbol(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, swapSuffix); ok && base != "" {
		return base + "USDT"
	}
	return symbol
}

// NativeSymbol renders a symbol in the given exchange's format.
func NativeSymbol(exchange, symbol string) string {
	if exchange == domain.ExchangeOKX {
		return ToOKXSymbol(symbol)
	}
	return ToAsterSymbol(symbol)
}
