package exchange

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const AsterBaseURL = "https://fapi.asterdex.com"

// AsterAdapter speaks a Binance-compatible REST API authenticated by
// an EVM wallet signature instead of an HMAC secret: the request
// query string is personal-signed with the account's private key and
// the signature plus wallet address travel as extra parameters.
type AsterAdapter struct {
	privateKey *ecdsa.PrivateKey
	address    string
	baseURL    string
	client     *http.Client
}

func NewAsterAdapter(creds domain.Credentials, baseURL string) (*AsterAdapter, error) {
	if baseURL == "" {
		baseURL = AsterBaseURL
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(creds.WalletKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &AsterAdapter{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *AsterAdapter) Exchange() string { return domain.ExchangeAster }

// signQuery personal-signs the canonical query string and appends the
// signature and signer address.
func (a *AsterAdapter) signQuery(params url.Values) (string, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("user", a.address)
	msg := params.Encode()

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), a.privateKey)
	if err != nil {
		return "", fmt.Errorf("wallet sign: %w", err)
	}
	sig[64] += 27

	return msg + "&signature=0x" + hex.EncodeToString(sig), nil
}

func (a *AsterAdapter) sendRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	query, err := a.signQuery(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		// Error bodies look like {"code":-1121,"msg":"Invalid symbol."}
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("aster error %d: %s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("aster http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// asRawResult wraps a response that is either a JSON array of objects
// or a single object.
func asRawResult(body []byte) (*domain.RawResult, error) {
	res := &domain.RawResult{Raw: body}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &res.Items); err != nil {
			return nil, fmt.Errorf("aster decode list: %w", err)
		}
		return res, nil
	}
	var item map[string]any
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("aster decode object: %w", err)
	}
	res.Items = []map[string]any{item}
	return res, nil
}

func (a *AsterAdapter) fetch(ctx context.Context, path string, params url.Values) (*domain.RawResult, error) {
	body, err := a.sendRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	return asRawResult(body)
}

func (a *AsterAdapter) FetchBalance(ctx context.Context) (*domain.RawResult, error) {
	return a.fetch(ctx, "/fapi/v2/account", nil)
}

func (a *AsterAdapter) FetchPositions(ctx context.Context, symbol string) (*domain.RawResult, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	return a.fetch(ctx, "/fapi/v2/positionRisk", params)
}

func (a *AsterAdapter) FetchOpenOrders(ctx context.Context, symbol string) (*domain.RawResult, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	return a.fetch(ctx, "/fapi/v1/openOrders", params)
}

func (a *AsterAdapter) FetchTrades(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("startTime", strconv.FormatInt(startMs, 10))
	params.Set("endTime", strconv.FormatInt(endMs, 10))
	return a.fetch(ctx, "/fapi/v1/userTrades", params)
}

func (a *AsterAdapter) FetchIncome(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	params.Set("startTime", strconv.FormatInt(startMs, 10))
	params.Set("endTime", strconv.FormatInt(endMs, 10))
	return a.fetch(ctx, "/fapi/v1/income", params)
}

func (a *AsterAdapter) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	// Public endpoint, no signature required.
	resp, err := a.client.Get(a.baseURL + "/fapi/v1/ticker/price?symbol=" + url.QueryEscape(symbol))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("ticker decode: %w", err)
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker %s parse: %w", symbol, err)
	}
	return price, nil
}

func (a *AsterAdapter) InstrumentMeta(ctx context.Context, symbol string) (*domain.InstrumentMeta, error) {
	resp, err := a.client.Get(a.baseURL + "/fapi/v1/exchangeInfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
				MinQty     string `json:"minQty"`
				TickSize   string `json:"tickSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("exchangeInfo decode: %w", err)
	}

	for _, s := range payload.Symbols {
		if s.Symbol != symbol {
			continue
		}
		meta := &domain.InstrumentMeta{Symbol: symbol}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				meta.LotSize, _ = strconv.ParseFloat(f.StepSize, 64)
				meta.MinSize, _ = strconv.ParseFloat(f.MinQty, 64)
			case "PRICE_FILTER":
				meta.TickSize, _ = strconv.ParseFloat(f.TickSize, 64)
			}
		}
		if meta.LotSize <= 0 || meta.MinSize <= 0 {
			return nil, fmt.Errorf("instrument %s has no lot size filter", symbol)
		}
		return meta, nil
	}
	return nil, fmt.Errorf("instrument %s not found", symbol)
}

func (a *AsterAdapter) PlaceMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (string, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(req.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(req.Size, 'f', -1, 64))
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := a.sendRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return "", err
	}
	var placed struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(body, &placed); err != nil {
		return "", fmt.Errorf("order decode: %w", err)
	}
	return strconv.FormatInt(placed.OrderID, 10), nil
}

func (a *AsterAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	_, err := a.sendRequest(ctx, http.MethodDelete, "/fapi/v1/order", params)
	return err
}

func (a *AsterAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	_, err := a.sendRequest(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", params)
	return err
}
