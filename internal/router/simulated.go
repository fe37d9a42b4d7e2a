package router

import (
	"context"
	"fmt"
	"sync"
)

// Simulated fills every request immediately at the request's limit price,
// which the execution loop sets to the current mark. Guarded by a mutex
// around the order-id counter only; no I/O.
type Simulated struct {
	mu     sync.Mutex
	nextID int
}

// NewSimulated creates a simulated backend with its id counter at zero.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Submit assigns a monotonically increasing order id and reports a full
// fill at the requested quantity and limit price.
func (s *Simulated) Submit(_ context.Context, req Request) (Result, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	return Result{
		OrderID:        fmt.Sprintf("SIM-%d", id),
		Status:         StatusFilled,
		FilledQuantity: req.Quantity,
		FilledPrice:    req.LimitPrice,
	}, nil
}
