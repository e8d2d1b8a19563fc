package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"droneDeliveryTracker/models"
)

const droneColumns = `id, name, model, battery_percent, max_speed_kmh, payload_limit_kg, status, lat, lng`

type DroneRepository struct {
	db *sql.DB
}

func NewDroneRepository(db *sql.DB) *DroneRepository {
	return &DroneRepository{db: db}
}

func scanDrone(row interface{ Scan(...any) error }) (*models.Drone, error) {
	var d models.Drone
	var status string
	err := row.Scan(&d.ID, &d.Name, &d.Model, &d.BatteryPercent, &d.MaxSpeedKmh, &d.PayloadLimitKg, &status, &d.Lat, &d.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Status = models.DroneStatus(status)
	return &d, nil
}

// Create inserts a new drone. Status defaults to 'idle' if empty.
func (r *DroneRepository) Create(ctx context.Context, d *models.Drone) (*models.Drone, error) {
	if d == nil {
		return nil, errors.New("drone is nil")
	}
	if d.Status == "" {
		d.Status = models.DroneStatusIdle
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO drones (name, model, battery_percent, max_speed_kmh, payload_limit_kg, status, lat, lng) VALUES (?,?,?,?,?,?,?,?)`,
		d.Name, d.Model, d.BatteryPercent, d.MaxSpeedKmh, d.PayloadLimitKg, string(d.Status), d.Lat, d.Lng)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.ID = id
	return d, nil
}

func (r *DroneRepository) GetByID(ctx context.Context, id int64) (*models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanDrone(r.db.QueryRowContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = ?`, id))
}

func (r *DroneRepository) GetByName(ctx context.Context, name string) (*models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanDrone(r.db.QueryRowContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE name = ?`, name))
}

// ListEligible returns drones eligible for assignment (idle with battery above
// the safety threshold) in id order. Selection is first-available; no
// closest-drone or highest-battery optimization.
func (r *DroneRepository) ListEligible(ctx context.Context) ([]models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE status = ? AND battery_percent > ? ORDER BY id ASC`,
		string(models.DroneStatusIdle), models.MinAssignableBattery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDrones(rows)
}

// Claim atomically transitions an eligible drone to 'delivering'. The
// conditional update guards the window between reading idle drones and
// marking one busy: a drone claimed by a concurrent assignment reports
// false instead of being double-booked.
func (r *DroneRepository) Claim(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ? WHERE id = ? AND status = ? AND battery_percent > ?`,
		string(models.DroneStatusDelivering), id, string(models.DroneStatusIdle), models.MinAssignableBattery)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release returns a drone to the idle pool at the given position. Used on
// delivery completion, cancellation, and as the compensating write when an
// assignment insert fails after a claim.
func (r *DroneRepository) Release(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ?, lat = ?, lng = ? WHERE id = ?`,
		string(models.DroneStatusIdle), lat, lng, id)
	return err
}

func (r *DroneRepository) UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ? WHERE id = ?`, string(status), id)
	return err
}

func (r *DroneRepository) UpdatePosition(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE drones SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	return err
}

func (r *DroneRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM drones WHERE id = ?`, id)
	return err
}

// ListDronesParams contains filters and pagination for List.
type ListDronesParams struct {
	Status       *models.DroneStatus
	NameContains *string
	PageSize     int
	AfterID      int64
}

// List returns drones matching filters ordered by id asc with keyset pagination.
func (r *DroneRepository) List(ctx context.Context, p ListDronesParams) ([]models.Drone, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if p.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.NameContains != nil && strings.TrimSpace(*p.NameContains) != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+strings.TrimSpace(*p.NameContains)+"%")
	}
	if p.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, p.AfterID)
	}

	query := `SELECT ` + droneColumns + ` FROM drones`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDrones(rows)
}

func collectDrones(rows *sql.Rows) ([]models.Drone, error) {
	var out []models.Drone
	for rows.Next() {
		var d models.Drone
		var status string
		if err := rows.Scan(&d.ID, &d.Name, &d.Model, &d.BatteryPercent, &d.MaxSpeedKmh, &d.PayloadLimitKg, &status, &d.Lat, &d.Lng); err != nil {
			return nil, err
		}
		d.Status = models.DroneStatus(status)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
