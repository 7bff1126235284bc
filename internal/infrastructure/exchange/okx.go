package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const OKXBaseURL = "https://www.okx.com"

// OKXAdapter speaks the HMAC-signed REST API. Every private request
// carries a base64 HMAC-SHA256 of timestamp+method+path+body plus the
// account passphrase. It returns raw payloads; field semantics live
// in the normalizer.
type OKXAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	client     *http.Client
}

func NewOKXAdapter(creds domain.Credentials, baseURL string) *OKXAdapter {
	if baseURL == "" {
		baseURL = OKXBaseURL
	}
	return &OKXAdapter{
		apiKey:     creds.APIKey,
		apiSecret:  creds.APISecret,
		passphrase: creds.Passphrase,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *OKXAdapter) Exchange() string { return domain.ExchangeOKX }

func (o *OKXAdapter) sign(timestamp, method, path string, body []byte) string {
	h := hmac.New(sha256.New, []byte(o.apiSecret))
	h.Write([]byte(timestamp + method + path))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// okxEnvelope is the uniform response frame: code "0" means success,
// data holds the list payload.
type okxEnvelope struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Data []json.RawMessage `json:"data"`
}

func (o *OKXAdapter) sendRequest(ctx context.Context, method, path string, payload any) (*domain.RawResult, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	req.Header.Set("OK-ACCESS-KEY", o.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", o.sign(timestamp, method, path, body))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("okx http %d: %s", resp.StatusCode, string(respBody))
	}

	var env okxEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("okx decode: %w", err)
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx error %s: %s", env.Code, env.Msg)
	}

	items := make([]map[string]any, 0, len(env.Data))
	for _, raw := range env.Data {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return &domain.RawResult{Raw: respBody, Items: items}, nil
}

func (o *OKXAdapter) FetchBalance(ctx context.Context) (*domain.RawResult, error) {
	return o.sendRequest(ctx, http.MethodGet, "/api/v5/account/balance", nil)
}

func (o *OKXAdapter) FetchPositions(ctx context.Context, symbol string) (*domain.RawResult, error) {
	path := "/api/v5/account/positions?instType=SWAP"
	if symbol != "" {
		path += "&instId=" + url.QueryEscape(symbol)
	}
	return o.sendRequest(ctx, http.MethodGet, path, nil)
}

func (o *OKXAdapter) FetchOpenOrders(ctx context.Context, symbol string) (*domain.RawResult, error) {
	path := "/api/v5/trade/orders-pending?instType=SWAP"
	if symbol != "" {
		path += "&instId=" + url.QueryEscape(symbol)
	}
	return o.sendRequest(ctx, http.MethodGet, path, nil)
}

func (o *OKXAdapter) FetchTrades(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	path := fmt.Sprintf("/api/v5/trade/fills-history?instType=SWAP&begin=%d&end=%d", startMs, endMs)
	if symbol != "" {
		path += "&instId=" + url.QueryEscape(symbol)
	}
	return o.sendRequest(ctx, http.MethodGet, path, nil)
}

func (o *OKXAdapter) FetchIncome(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	// Bill type 8 = funding fee.
	path := fmt.Sprintf("/api/v5/account/bills?type=8&begin=%d&end=%d", startMs, endMs)
	return o.sendRequest(ctx, http.MethodGet, path, nil)
}

func (o *OKXAdapter) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	res, err := o.sendRequest(ctx, http.MethodGet, "/api/v5/market/ticker?instId="+url.QueryEscape(symbol), nil)
	if err != nil {
		return 0, err
	}
	if len(res.Items) == 0 {
		return 0, fmt.Errorf("ticker %s not found", symbol)
	}
	last, _ := res.Items[0]["last"].(string)
	price, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker %s parse: %w", symbol, err)
	}
	return price, nil
}

func (o *OKXAdapter) InstrumentMeta(ctx context.Context, symbol string) (*domain.InstrumentMeta, error) {
	path := "/api/v5/public/instruments?instType=SWAP&instId=" + url.QueryEscape(symbol)
	res, err := o.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("instrument %s not found", symbol)
	}

	inst := res.Items[0]
	parse := func(name string) (float64, error) {
		s, _ := inst[name].(string)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("instrument %s field %s: %q", symbol, name, s)
		}
		return v, nil
	}

	lotSz, err := parse("lotSz")
	if err != nil {
		return nil, err
	}
	minSz, err := parse("minSz")
	if err != nil {
		return nil, err
	}
	tickSz, err := parse("tickSz")
	if err != nil {
		return nil, err
	}
	return &domain.InstrumentMeta{Symbol: symbol, LotSize: lotSz, MinSize: minSz, TickSize: tickSz}, nil
}

func (o *OKXAdapter) PlaceMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (string, error) {
	payload := map[string]any{
		"instId":  req.Symbol,
		"tdMode":  "cross",
		"side":    req.Side,
		"ordType": "market",
		"sz":      strconv.FormatFloat(req.Size, 'f', -1, 64),
	}
	if req.ReduceOnly {
		payload["reduceOnly"] = true
	}

	res, err := o.sendRequest(ctx, http.MethodPost, "/api/v5/trade/order", payload)
	if err != nil {
		return "", err
	}
	if len(res.Items) == 0 {
		return "", fmt.Errorf("okx order: empty response")
	}
	// Per-order results carry their own code.
	if code, _ := res.Items[0]["sCode"].(string); code != "" && code != "0" {
		msg, _ := res.Items[0]["sMsg"].(string)
		return "", fmt.Errorf("okx order error %s: %s", code, msg)
	}
	ordID, _ := res.Items[0]["ordId"].(string)
	return ordID, nil
}

func (o *OKXAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	payload := map[string]any{"instId": symbol, "ordId": orderID}
	res, err := o.sendRequest(ctx, http.MethodPost, "/api/v5/trade/cancel-order", payload)
	if err != nil {
		return err
	}
	if len(res.Items) > 0 {
		if code, _ := res.Items[0]["sCode"].(string); code != "" && code != "0" {
			msg, _ := res.Items[0]["sMsg"].(string)
			return fmt.Errorf("okx cancel error %s: %s", code, msg)
		}
	}
	return nil
}

func (o *OKXAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	pending, err := o.FetchOpenOrders(ctx, symbol)
	if err != nil {
		return err
	}
	if len(pending.Items) == 0 {
		return nil
	}

	batch := make([]map[string]any, 0, len(pending.Items))
	for _, item := range pending.Items {
		instID, _ := item["instId"].(string)
		ordID, _ := item["ordId"].(string)
		if instID == "" || ordID == "" {
			continue
		}
		batch = append(batch, map[string]any{"instId": instID, "ordId": ordID})
	}
	if len(batch) == 0 {
		return nil
	}
	_, err = o.sendRequest(ctx, http.MethodPost, "/api/v5/trade/cancel-batch-orders", batch)
	return err
}
