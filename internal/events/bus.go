package events

import (
	"sync"

	"github.com/google/uuid"

	"droneDeliveryTracker/models"
)

// StatusFunc receives order status transitions.
type StatusFunc func(status models.OrderStatus)

// Bus fans order status changes out to per-order subscribers. Callbacks run
// synchronously on the publisher's goroutine and must not block.
type Bus struct {
	mu   sync.RWMutex
	subs map[int64]map[string]StatusFunc
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]map[string]StatusFunc)}
}

// Subscribe registers fn for status changes of the given order and returns
// an unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(orderID int64, fn StatusFunc) func() {
	id := uuid.NewString()
	b.mu.Lock()
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[string]StatusFunc)
	}
	b.subs[orderID][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[orderID], id)
			if len(b.subs[orderID]) == 0 {
				delete(b.subs, orderID)
			}
		})
	}
}

// Publish notifies every subscriber of the order about the new status.
func (b *Bus) Publish(orderID int64, status models.OrderStatus) {
	b.mu.RLock()
	fns := make([]StatusFunc, 0, len(b.subs[orderID]))
	for _, fn := range b.subs[orderID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(status)
	}
}

// Subscribers reports how many callbacks are registered for the order.
func (b *Bus) Subscribers(orderID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[orderID])
}
