package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// PriceFeed subscribes to one exchange's public ticker stream and
// writes every update through the market price cache, so dashboards
// see sub-cycle prices between collection runs. Reconnects with a
// fixed backoff until the context is cancelled.
type PriceFeed struct {
	exchange string
	wsURL    string
	symbols  []string
	cache    domain.PriceCache
	log      *zap.Logger
}

func NewPriceFeed(exchange, wsURL string, symbols []string, cache domain.PriceCache, log *zap.Logger) *PriceFeed {
	return &PriceFeed{exchange: exchange, wsURL: wsURL, symbols: symbols, cache: cache, log: log}
}

func (f *PriceFeed) Run(ctx context.Context) {
	if f.wsURL == "" || len(f.symbols) == 0 {
		return
	}
	for {
		if err := f.consume(ctx); err != nil {
			f.log.Warn("price feed disconnected",
				zap.String("exchange", f.exchange), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (f *PriceFeed) dialURL() string {
	if f.exchange == domain.ExchangeAster {
		// Stream selection is part of the URL for the combined stream.
		streams := make([]string, len(f.symbols))
		for i, s := range f.symbols {
			streams[i] = strings.ToLower(s) + "@miniTicker"
		}
		return f.wsURL + "/stream?streams=" + strings.Join(streams, "/")
	}
	return f.wsURL
}

func (f *PriceFeed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.dialURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if f.exchange == domain.ExchangeOKX {
		args := make([]map[string]string, len(f.symbols))
		for i, s := range f.symbols {
			args[i] = map[string]string{"channel": "tickers", "instId": s}
		}
		if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		symbol, price, ok := f.parse(message)
		if !ok {
			continue
		}
		if err := f.cache.Set(ctx, f.exchange, symbol, price); err != nil {
			f.log.Warn("price cache write failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func (f *PriceFeed) parse(message []byte) (string, float64, bool) {
	switch f.exchange {
	case domain.ExchangeOKX:
		var event struct {
			Arg struct {
				InstID string `json:"instId"`
			} `json:"arg"`
			Data []struct {
				Last string `json:"last"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil || len(event.Data) == 0 {
			return "", 0, false
		}
		price, err := strconv.ParseFloat(event.Data[0].Last, 64)
		if err != nil {
			return "", 0, false
		}
		return event.Arg.InstID, price, true

	case domain.ExchangeAster:
		var event struct {
			Data struct {
				Symbol string `json:"s"`
				Close  string `json:"c"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil || event.Data.Symbol == "" {
			return "", 0, false
		}
		price, err := strconv.ParseFloat(event.Data.Close, 64)
		if err != nil {
			return "", 0, false
		}
		return event.Data.Symbol, price, true
	}
	return "", 0, false
}
