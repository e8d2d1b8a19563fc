package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneDeliveryTracker/models"
)

// ProgressRepository is the durable sim.ProgressStore: it persists the
// simulator's last position and arrival flag keyed by order id, so tracking
// survives process restarts. Writes are last-write-wins upserts; there is no
// expiry, stale rows for terminal orders are harmless.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) SavePosition(ctx context.Context, orderID int64, pos models.Coordinate) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO delivery_progress (order_id, lat, lng, arrived)
VALUES (?, ?, ?, 0)
ON CONFLICT(order_id) DO UPDATE SET lat = excluded.lat, lng = excluded.lng, updated_at = CURRENT_TIMESTAMP`,
		orderID, pos.Lat, pos.Lng)
	return err
}

// Position returns the last persisted position, or nil when none exists.
func (r *ProgressRepository) Position(ctx context.Context, orderID int64) (*models.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c models.Coordinate
	err := r.db.QueryRowContext(ctx, `SELECT lat, lng FROM delivery_progress WHERE order_id = ?`, orderID).
		Scan(&c.Lat, &c.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ProgressRepository) MarkArrived(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO delivery_progress (order_id, lat, lng, arrived)
VALUES (?, 0, 0, 1)
ON CONFLICT(order_id) DO UPDATE SET arrived = 1, updated_at = CURRENT_TIMESTAMP`,
		orderID)
	return err
}

func (r *ProgressRepository) Arrived(ctx context.Context, orderID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var arrived int
	err := r.db.QueryRowContext(ctx, `SELECT arrived FROM delivery_progress WHERE order_id = ?`, orderID).
		Scan(&arrived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return arrived == 1, nil
}

func (r *ProgressRepository) Clear(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM delivery_progress WHERE order_id = ?`, orderID)
	return err
}

// Get returns the full progress row, used by tracking views to render the
// current state before any live tick arrives.
func (r *ProgressRepository) Get(ctx context.Context, orderID int64) (*models.DeliveryProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.DeliveryProgress
	var arrived int
	err := r.db.QueryRowContext(ctx, `SELECT order_id, lat, lng, arrived, updated_at FROM delivery_progress WHERE order_id = ?`, orderID).
		Scan(&p.OrderID, &p.Lat, &p.Lng, &arrived, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Arrived = arrived == 1
	return &p, nil
}
