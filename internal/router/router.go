// Package router submits risk-approved signals to one of two backends and
// returns the resulting fill.
//
// Design rules (from spec):
//   - Only one backend is active at a time, chosen at construction:
//     credentials present -> live, else simulated. The execution loop
//     never observes which one it got.
//   - The router does not retry; retry policy belongs to the caller.
//   - submit's only observable side effect in live mode is the remote
//     order creation; in simulated mode, none.
package router

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type is the order type the router submits.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Status is the outcome of a submitted order.
type Status string

const (
	StatusFilled   Status = "FILLED"
	StatusPartial  Status = "PARTIAL"
	StatusRejected Status = "REJECTED"
)

// Request is constructed by the execution loop from an approved Signal
// plus the current mark.
type Request struct {
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal // zero for MARKET
	Type       Type
}

// Result is the router's fill report.
type Result struct {
	OrderID        string
	Status         Status
	FilledQuantity decimal.Decimal
	FilledPrice    decimal.Decimal // zero when unknown
	Raw            any
}

// Error is a fatal, non-retryable routing failure — an exchange rejection
// or a client error. The caller must not retry; retry policy is theirs.
type Error struct {
	Symbol string
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("router: submit %s: %v", e.Symbol, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Router submits an order Request and returns its fill or a routing Error.
type Router interface {
	Submit(ctx context.Context, req Request) (Result, error)
}

// New picks the live backend when credentialsPresent is true, falling back
// to the simulated backend otherwise. Callers never need to branch on
// which one they got.
func New(credentialsPresent bool, cfg LiveConfig) Router {
	if credentialsPresent {
		return NewLive(cfg)
	}
	return NewSimulated()
}
