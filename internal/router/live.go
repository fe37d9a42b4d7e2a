package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Network selects which exchange environment the live backend calls.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// LiveConfig configures the live backend's exchange client.
type LiveConfig struct {
	APIKey         string
	APISecret      string
	RecvWindow     time.Duration
	RequestTimeout time.Duration
	Network        Network

	// BaseURL overrides the network-derived endpoint. Tests point this at
	// an httptest server; production leaves it empty.
	BaseURL string
}

func (c LiveConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Network == NetworkTestnet {
		return "https://testnet.binance.vision"
	}
	return "https://api.binance.com"
}

// orderResponse is the exchange's create-order response.
type orderResponse struct {
	OrderID             int64  `json:"orderId"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Live submits orders to a live exchange gateway over REST.
type Live struct {
	client     *resty.Client
	recvWindow time.Duration
}

// NewLive builds a live backend from cfg. The underlying resty client
// serializes its own connections; no additional locking is needed here.
func NewLive(cfg LiveConfig) *Live {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	recvWindow := cfg.RecvWindow
	if recvWindow == 0 {
		recvWindow = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.baseURL()).
		SetTimeout(timeout).
		SetHeader("X-MBX-APIKEY", cfg.APIKey)

	return &Live{client: client, recvWindow: recvWindow}
}

// Submit translates req into an exchange order: symbol upper-cased, side
// upper-cased, type upper-cased, quantity numeric, plus a receive-window
// parameter; non-MARKET orders attach limit_price. The response is parsed
// into a Result: filled_quantity from executed qty, filled_price from
// cumulative_quote/filled_quantity when both are non-zero, else the
// requested limit price. Exchange errors become a fatal, non-retryable
// Error surfaced as REJECTED.
func (l *Live) Submit(ctx context.Context, req Request) (Result, error) {
	params := map[string]string{
		"symbol":     strings.ToUpper(req.Symbol),
		"side":       strings.ToUpper(string(req.Side)),
		"type":       strings.ToUpper(string(req.Type)),
		"quantity":   req.Quantity.String(),
		"recvWindow": fmt.Sprintf("%d", l.recvWindow.Milliseconds()),
	}
	if req.Type != TypeMarket {
		params["price"] = req.LimitPrice.String()
	}

	var out orderResponse
	var errOut errorResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&errOut).
		Post("/api/v3/order")
	if err != nil {
		return Result{Status: StatusRejected}, &Error{Symbol: req.Symbol, Cause: err}
	}
	if resp.IsError() {
		return Result{Status: StatusRejected}, &Error{Symbol: req.Symbol, Cause: fmt.Errorf("exchange rejected order (%d): %s", errOut.Code, errOut.Msg)}
	}

	filledQty, err := decimal.NewFromString(out.ExecutedQty)
	if err != nil {
		return Result{Status: StatusRejected}, &Error{Symbol: req.Symbol, Cause: fmt.Errorf("parse executedQty %q: %w", out.ExecutedQty, err)}
	}

	filledPrice := req.LimitPrice
	cumulativeQuote, err := decimal.NewFromString(out.CummulativeQuoteQty)
	if err == nil && !cumulativeQuote.IsZero() && !filledQty.IsZero() {
		filledPrice = cumulativeQuote.Div(filledQty)
	}

	return Result{
		OrderID:        fmt.Sprintf("%d", out.OrderID),
		Status:         mapStatus(out.Status),
		FilledQuantity: filledQty,
		FilledPrice:    filledPrice,
		Raw:            out,
	}, nil
}

func mapStatus(exchangeStatus string) Status {
	switch exchangeStatus {
	case "FILLED":
		return StatusFilled
	case "PARTIALLY_FILLED":
		return StatusPartial
	default:
		return StatusRejected
	}
}
