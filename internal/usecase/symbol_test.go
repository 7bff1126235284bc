package usecase_test

import (
	"testing"

	"github.com/vitos/crypto_account_monitor/internal/domain"
	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

func TestToOKXSymbol(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"BTCUSDT", "BTC-USDT-SWAP"},
		{"ETHUSDT", "ETH-USDT-SWAP"},
		{"BTC-USDT-SWAP", "BTC-USDT-SWAP"}, // already converted
		{"USDT", "USDT"},                   // no base left after the cut
		{"BTCUSD", "BTCUSD"},               // unknown quote passes through
	}
	for _, c := range cases {
		if got := usecase.ToOKXSymbol(c.in); got != c.want {
			t.Errorf("ToOKXSymbol(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestToAsterSymbol(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"BTC-USDT-SWAP", "BTCUSDT"},
		{"BTCUSDT", "BTCUSDT"}, // already converted
		{"-USDT-SWAP", "-USDT-SWAP"},
	}
	for _, c := range cases {
		if got := usecase.ToAsterSymbol(c.in); got != c.want {
			t.Errorf("ToAsterSymbol(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestSymbolConversionIdempotent(t *testing.T) {
	once := usecase.ToOKXSymbol("BTCUSDT")
	twice := usecase.ToOKXSymbol(once)
	if once != twice {
		t.Errorf("ToOKXSymbol not idempotent: %s vs %s", once, twice)
	}

	once = usecase.ToAsterSymbol("BTC-USDT-SWAP")
	twice = usecase.ToAsterSymbol(once)
	if once != twice {
		t.Errorf("ToAsterSymbol not idempotent: %s vs %s", once, twice)
	}
}

func TestNativeSymbol(t *testing.T) {
	if got := usecase.NativeSymbol(domain.ExchangeOKX, "BTCUSDT"); got != "BTC-USDT-SWAP" {
		t.Errorf("Expected BTC-USDT-SWAP, got %s", got)
	}
	if got := usecase.NativeSymbol(domain.ExchangeAster, "BTC-USDT-SWAP"); got != "BTCUSDT" {
		t.Errorf("Expected BTCUSDT, got %s", got)
	}
}
