// Package bybit implements the ExchangeClient contract against the Bybit
// v5 unified trading API (linear perpetuals).
package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"trade-executor/pkg/exchanges/common"
)

const categoryLinear = "linear"

// Config holds Bybit credentials and session options.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	Demo       bool   // demo trading on mainnet infrastructure
	HedgeMode  bool   // account runs both-side positions
	RecvWindow int64  // ms, default 10000
	BaseURL    string // override for tests
}

// Client is one Bybit v5 REST session. It is safe for concurrent use and
// cheap to replace; the Provider swaps it out after persistent failures.
type Client struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	timeSync    *common.TimeSync
	rateLimiter *common.RateLimiter
	pacer       *rate.Limiter
}

// NewClient creates a Bybit v5 client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		switch {
		case cfg.Demo:
			base = "https://api-demo.bybit.com"
		case cfg.Testnet:
			base = "https://api-testnet.bybit.com"
		default:
			base = "https://api.bybit.com"
		}
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 10000
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// 10 req/s with small bursts keeps us well inside the per-key quota.
		pacer: rate.NewLimiter(rate.Limit(10), 5),
	}
	c.timeSync = common.NewTimeSync(c.fetchServerTime)
	c.rateLimiter = common.NewRateLimiter(120, time.Minute)
	return c
}

// StartTimeSync begins periodic server-clock synchronization.
func (c *Client) StartTimeSync(ctx context.Context) {
	c.timeSync.Start(ctx)
}

func (c *Client) now() int64 {
	if c.timeSync != nil && c.timeSync.Offset() != 0 {
		return c.timeSync.Now()
	}
	return time.Now().UnixMilli()
}

func (c *Client) fetchServerTime() (int64, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/v5/market/time")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var out serverTimeResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	if out.RetCode != 0 {
		return 0, fmt.Errorf("bybit server time: %s", out.RetMsg)
	}
	sec, err := strconv.ParseInt(out.Result.TimeSecond, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse server time: %w", err)
	}
	return sec * 1000, nil
}

// GetBalance returns the unified account's total available balance.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var out walletBalanceResult
	if err := c.get(ctx, "/v5/account/wallet-balance", "accountType=UNIFIED", &out); err != nil {
		return 0, err
	}
	if len(out.Result.List) == 0 {
		return 0, errors.New("bybit: empty wallet balance response")
	}
	bal, err := strconv.ParseFloat(out.Result.List[0].TotalAvailableBalance, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance: %w", err)
	}
	return bal, nil
}

// GetSymbolSpec fetches the instrument's price/lot filters.
func (c *Client) GetSymbolSpec(ctx context.Context, symbol string) (common.SymbolSpec, error) {
	var out instrumentsInfoResult
	query := "category=" + categoryLinear + "&symbol=" + symbol
	if err := c.get(ctx, "/v5/market/instruments-info", query, &out); err != nil {
		return common.SymbolSpec{}, err
	}
	if len(out.Result.List) == 0 {
		return common.SymbolSpec{}, fmt.Errorf("bybit: unknown symbol %s", symbol)
	}
	info := out.Result.List[0]

	tick, err := strconv.ParseFloat(info.PriceFilter.TickSize, 64)
	if err != nil {
		return common.SymbolSpec{}, fmt.Errorf("parse tick size: %w", err)
	}
	step, err := strconv.ParseFloat(info.LotSizeFilter.QtyStep, 64)
	if err != nil {
		return common.SymbolSpec{}, fmt.Errorf("parse qty step: %w", err)
	}
	minQty, err := strconv.ParseFloat(info.LotSizeFilter.MinOrderQty, 64)
	if err != nil {
		return common.SymbolSpec{}, fmt.Errorf("parse min qty: %w", err)
	}

	return common.SymbolSpec{
		Symbol:   info.Symbol,
		TickSize: tick,
		QtyStep:  step,
		MinQty:   minQty,
	}, nil
}

// GetPositions returns open positions for a symbol. Flat rows (size 0) are
// filtered out.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]common.Position, error) {
	var out positionListResult
	query := "category=" + categoryLinear + "&symbol=" + symbol
	if err := c.get(ctx, "/v5/position/list", query, &out); err != nil {
		return nil, err
	}

	var positions []common.Position
	for _, p := range out.Result.List {
		size, err := strconv.ParseFloat(p.Size, 64)
		if err != nil || size <= 0 || p.Side == "" {
			continue
		}
		positions = append(positions, common.Position{
			Symbol: p.Symbol,
			Side:   common.Side(p.Side),
			Size:   size,
		})
	}
	return positions, nil
}

// SetLeverage sets both buy and sell leverage for the symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	body := map[string]any{
		"category":     categoryLinear,
		"symbol":       symbol,
		"buyLeverage":  strconv.Itoa(leverage),
		"sellLeverage": strconv.Itoa(leverage),
	}
	var out envelope
	return c.post(ctx, "/v5/position/set-leverage", body, &out)
}

// PlaceOrder submits an order.
func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	body := map[string]any{
		"category":  categoryLinear,
		"symbol":    req.Symbol,
		"side":      string(req.Side),
		"orderType": string(req.Type),
		"qty":       formatFloat(req.Qty),
	}
	body["positionIdx"] = c.positionIdx(req)
	if req.Type == common.OrderTypeLimit {
		body["price"] = formatFloat(req.Price)
	}
	if req.TimeInForce != "" {
		body["timeInForce"] = string(req.TimeInForce)
	}
	if req.StopLoss > 0 {
		body["stopLoss"] = formatFloat(req.StopLoss)
	}
	if req.TakeProfit > 0 {
		body["takeProfit"] = formatFloat(req.TakeProfit)
	}
	if req.ReduceOnly {
		body["reduceOnly"] = true
	}
	if req.ClientID != "" {
		body["orderLinkId"] = req.ClientID
	}

	var out orderCreateResult
	if err := c.post(ctx, "/v5/order/create", body, &out); err != nil {
		return common.OrderResult{}, err
	}
	return common.OrderResult{
		OrderID:  out.Result.OrderID,
		ClientID: out.Result.OrderLinkID,
	}, nil
}

// positionIdx maps an order to Bybit's position index: 0 in one-way mode,
// 1 (long) or 2 (short) in hedge mode. A reduce-only order's side is the
// opposite of the position it closes.
func (c *Client) positionIdx(req common.OrderRequest) int {
	if !c.cfg.HedgeMode {
		return 0
	}
	long := req.Side == common.SideBuy
	if req.ReduceOnly {
		long = !long
	}
	if long {
		return 1
	}
	return 2
}

// GetClosedPnL returns recent closed-PnL records, newest first.
func (c *Client) GetClosedPnL(ctx context.Context, symbol string, limit int) ([]common.ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	var out closedPnLResult
	query := fmt.Sprintf("category=%s&symbol=%s&limit=%d", categoryLinear, symbol, limit)
	if err := c.get(ctx, "/v5/position/closed-pnl", query, &out); err != nil {
		return nil, err
	}

	trades := make([]common.ClosedTrade, 0, len(out.Result.List))
	for _, r := range out.Result.List {
		qty, err := strconv.ParseFloat(r.Qty, 64)
		if err != nil {
			return nil, fmt.Errorf("parse closed qty: %w", err)
		}
		exit, err := strconv.ParseFloat(r.AvgExitPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("parse exit price: %w", err)
		}
		pnl, err := strconv.ParseFloat(r.ClosedPnL, 64)
		if err != nil {
			return nil, fmt.Errorf("parse closed pnl: %w", err)
		}
		ms, err := strconv.ParseInt(r.UpdatedTime, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close time: %w", err)
		}
		trades = append(trades, common.ClosedTrade{
			Symbol:      r.Symbol,
			Side:        common.Side(r.Side),
			Qty:         qty,
			ExitPrice:   exit,
			RealizedPnL: pnl,
			ClosedAt:    time.UnixMilli(ms).UTC(),
		})
	}
	return trades, nil
}

// get performs a signed GET request. query must already be encoded.
func (c *Client) get(ctx context.Context, path, query string, out interface{ apiError() error }) error {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req, query)
	return c.do(req, out)
}

// post performs a signed POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out interface{ apiError() error }) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, string(raw))
	return c.do(req, out)
}

func (c *Client) authorize(req *http.Request, payload string) {
	timestamp := strconv.FormatInt(c.now(), 10)
	recvWindow := strconv.FormatInt(c.cfg.RecvWindow, 10)
	req.Header.Set("X-BAPI-API-KEY", c.cfg.APIKey)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", sign(c.cfg.APISecret, timestamp, c.cfg.APIKey, recvWindow, payload))
}

func (c *Client) do(req *http.Request, out interface{ apiError() error }) error {
	if err := c.pacer.Wait(req.Context()); err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bybit %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if c.rateLimiter != nil {
		c.rateLimiter.UpdateFromHeaders(
			res.Header.Get("X-Bapi-Limit"),
			res.Header.Get("X-Bapi-Limit-Status"),
		)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("bybit read body: %w", err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("bybit %s %s status %d: %s", req.Method, req.URL.Path, res.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("bybit decode %s: %w", req.URL.Path, err)
	}
	return out.apiError()
}

// apiError turns a non-zero retCode into an error.
func (e *envelope) apiError() error {
	if e.RetCode != 0 {
		return fmt.Errorf("bybit api error %d: %s", e.RetCode, e.RetMsg)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
