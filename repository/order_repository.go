package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"droneDeliveryTracker/models"
)

const orderColumns = `id, merchant_address, delivery_address, submitted_by, status, placement_date`

// OrderRepository handles Order persistence. The tracker owns only the
// terminal edges of the status field: the Assignment Resolver sets shipping,
// completion/cancellation set the terminal states.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order. Status defaults to 'pending' if empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO orders (merchant_address, delivery_address, submitted_by, status) VALUES (?,?,?,?)`,
		o.MerchantAddress, o.DeliveryAddress, o.SubmittedBy, string(o.Status))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	// Query back to capture placement_date.
	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return o2, nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var o models.Order
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.MerchantAddress, &o.DeliveryAddress, &o.SubmittedBy, &status, &o.PlacementAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

// ListByUserID returns all orders for a user ordered by placement_date desc.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE submitted_by = ? ORDER BY placement_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var o models.Order
		var status string
		if err := rows.Scan(&o.ID, &o.MerchantAddress, &o.DeliveryAddress, &o.SubmittedBy, &status, &o.PlacementAt); err != nil {
			return nil, err
		}
		o.Status = models.OrderStatus(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus sets the order status. Terminal statuses are never overwritten.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(status), id, string(models.OrderStatusCompleted), string(models.OrderStatusCancelled))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d not found or already terminal", id)
	}
	return nil
}
