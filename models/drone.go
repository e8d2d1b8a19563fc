package models

// DroneStatus represents the availability of a drone.
type DroneStatus string

const (
	DroneStatusIdle        DroneStatus = "idle"
	DroneStatusDelivering  DroneStatus = "delivering"
	DroneStatusMaintenance DroneStatus = "maintenance"
	DroneStatusCharging    DroneStatus = "charging"
)

// MinAssignableBattery is the exclusive battery floor for assignment
// eligibility: a drone must report strictly more than this percentage.
const MinAssignableBattery = 20

// Drone represents a delivery drone in the fleet.
type Drone struct {
	ID             int64       `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Model          string      `db:"model" json:"model"`
	BatteryPercent int         `db:"battery_percent" json:"battery_percent"`
	MaxSpeedKmh    float64     `db:"max_speed_kmh" json:"max_speed_kmh"`
	PayloadLimitKg float64     `db:"payload_limit_kg" json:"payload_limit_kg"`
	Status         DroneStatus `db:"status" json:"status"`
	Lat            float64     `db:"lat" json:"lat"`
	Lng            float64     `db:"lng" json:"lng"`
}

// Assignable reports whether the drone may receive a new delivery.
func (d *Drone) Assignable() bool {
	return d.Status == DroneStatusIdle && d.BatteryPercent > MinAssignableBattery
}

// Position returns the drone's current coordinate.
func (d *Drone) Position() Coordinate {
	return Coordinate{Lat: d.Lat, Lng: d.Lng}
}
