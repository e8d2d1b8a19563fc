package models

// AssignmentStatus represents the lifecycle stage of a delivery assignment.
// Statuses only ever advance: assigned -> in_transit -> delivered, or -> failed.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusInTransit AssignmentStatus = "in_transit"
	AssignmentStatusDelivered AssignmentStatus = "delivered"
	AssignmentStatusFailed    AssignmentStatus = "failed"
)

// rank orders statuses for the monotonic-advance check. Delivered and failed
// share the terminal rank; neither can supersede the other.
func (s AssignmentStatus) rank() int {
	switch s {
	case AssignmentStatusAssigned:
		return 0
	case AssignmentStatusInTransit:
		return 1
	case AssignmentStatusDelivered, AssignmentStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether next is a legal forward transition from s.
func (s AssignmentStatus) CanAdvanceTo(next AssignmentStatus) bool {
	return next.rank() > s.rank()
}

// DeliveryAssignment links an order to the drone performing its delivery.
// One assignment per order; records are never deleted, only superseded by a
// new order's own assignment.
type DeliveryAssignment struct {
	ID         int64            `db:"id" json:"id"`
	OrderID    int64            `db:"order_id" json:"order_id"`
	DroneID    int64            `db:"drone_id" json:"drone_id"`
	Status     AssignmentStatus `db:"status" json:"status"`
	PickupLat  float64          `db:"pickup_lat" json:"pickup_lat"`
	PickupLng  float64          `db:"pickup_lng" json:"pickup_lng"`
	DropoffLat float64          `db:"dropoff_lat" json:"dropoff_lat"`
	DropoffLng float64          `db:"dropoff_lng" json:"dropoff_lng"`
	DistanceKm float64          `db:"distance_km" json:"distance_km"`
	EtaMinutes int              `db:"eta_minutes" json:"eta_minutes"`
	AssignedAt string           `db:"assigned_at" json:"assigned_at"`
}

// Pickup returns the pickup endpoint as a coordinate.
func (a *DeliveryAssignment) Pickup() Coordinate {
	return Coordinate{Lat: a.PickupLat, Lng: a.PickupLng}
}

// Dropoff returns the drop-off endpoint as a coordinate.
func (a *DeliveryAssignment) Dropoff() Coordinate {
	return Coordinate{Lat: a.DropoffLat, Lng: a.DropoffLng}
}

// Route reconstructs the delivery route stored on the assignment.
func (a *DeliveryAssignment) Route() *Route {
	return &Route{
		Pickup:     a.Pickup(),
		Dropoff:    a.Dropoff(),
		DistanceKm: a.DistanceKm,
		EtaMinutes: a.EtaMinutes,
	}
}
