package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"droneDeliveryTracker/models"
)

const assignmentColumns = `id, order_id, drone_id, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, distance_km, eta_minutes, assigned_at`

// AssignmentRepository handles DeliveryAssignment persistence. One assignment
// per order, enforced by a UNIQUE constraint; rows are never deleted.
type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func scanAssignment(row interface{ Scan(...any) error }) (*models.DeliveryAssignment, error) {
	var a models.DeliveryAssignment
	var status string
	err := row.Scan(&a.ID, &a.OrderID, &a.DroneID, &status, &a.PickupLat, &a.PickupLng, &a.DropoffLat, &a.DropoffLng, &a.DistanceKm, &a.EtaMinutes, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Status = models.AssignmentStatus(status)
	return &a, nil
}

// Create inserts a new assignment. Status defaults to 'assigned' if empty.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.DeliveryAssignment) (*models.DeliveryAssignment, error) {
	if a == nil {
		return nil, errors.New("assignment is nil")
	}
	if a.Status == "" {
		a.Status = models.AssignmentStatusAssigned
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO delivery_assignments (order_id, drone_id, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, distance_km, eta_minutes) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.OrderID, a.DroneID, string(a.Status), a.PickupLat, a.PickupLng, a.DropoffLat, a.DropoffLng, a.DistanceKm, a.EtaMinutes)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	a2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a2 == nil {
		return nil, fmt.Errorf("created assignment not found: id=%d", id)
	}
	return a2, nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanAssignment(r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE id = ?`, id))
}

// GetByOrderID fetches the assignment for an order (1:1).
func (r *AssignmentRepository) GetByOrderID(ctx context.Context, orderID int64) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanAssignment(r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE order_id = ?`, orderID))
}

// GetByDroneID fetches the most recent assignment handled by a drone.
func (r *AssignmentRepository) GetByDroneID(ctx context.Context, droneID int64) (*models.DeliveryAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanAssignment(r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM delivery_assignments WHERE drone_id = ? ORDER BY id DESC LIMIT 1`, droneID))
}

// AdvanceStatus moves the assignment status forward. Backward transitions are
// rejected; the status sequence is monotonic.
func (r *AssignmentRepository) AdvanceStatus(ctx context.Context, id int64, status models.AssignmentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("assignment %d not found", id)
	}
	if !cur.Status.CanAdvanceTo(status) {
		return fmt.Errorf("assignment %d cannot advance from %s to %s", id, cur.Status, status)
	}

	// Guard the concurrent path too: only advance if the row still holds the
	// status we just read.
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_assignments SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(cur.Status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("assignment %d status changed concurrently", id)
	}
	return nil
}
