package sim

import (
	"context"
	"sync"
	"time"

	"droneDeliveryTracker/models"
)

// ProgressStore persists the last known position and arrival flag per order,
// so a tracking client can resume mid-route after a restart instead of
// replaying from pickup. Writes are last-write-wins; there is a single writer
// per order id in practice.
type ProgressStore interface {
	SavePosition(ctx context.Context, orderID int64, pos models.Coordinate) error
	// Position returns nil when no progress has been recorded for the order.
	Position(ctx context.Context, orderID int64) (*models.Coordinate, error)
	MarkArrived(ctx context.Context, orderID int64) error
	Arrived(ctx context.Context, orderID int64) (bool, error)
	Clear(ctx context.Context, orderID int64) error
}

// MemoryStore is an in-process ProgressStore. It backs tests and any
// deployment that does not need durability.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]*models.DeliveryProgress
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]*models.DeliveryProgress)}
}

func (m *MemoryStore) SavePosition(_ context.Context, orderID int64, pos models.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[orderID]
	if !ok {
		e = &models.DeliveryProgress{OrderID: orderID}
		m.entries[orderID] = e
	}
	e.Lat = pos.Lat
	e.Lng = pos.Lng
	e.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (m *MemoryStore) Position(_ context.Context, orderID int64) (*models.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[orderID]
	if !ok {
		return nil, nil
	}
	pos := e.Position()
	return &pos, nil
}

func (m *MemoryStore) MarkArrived(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[orderID]
	if !ok {
		e = &models.DeliveryProgress{OrderID: orderID}
		m.entries[orderID] = e
	}
	e.Arrived = true
	e.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (m *MemoryStore) Arrived(_ context.Context, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[orderID]
	return ok && e.Arrived, nil
}

func (m *MemoryStore) Clear(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, orderID)
	return nil
}
