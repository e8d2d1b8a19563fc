package models

// DeliveryProgress is the last known simulated position for an order's
// delivery, persisted on every tick so tracking survives process restarts.
// Entries become irrelevant once the order is terminal; stale rows are
// harmless because order ids never collide across deliveries.
type DeliveryProgress struct {
	OrderID   int64   `db:"order_id" json:"order_id"`
	Lat       float64 `db:"lat" json:"lat"`
	Lng       float64 `db:"lng" json:"lng"`
	Arrived   bool    `db:"arrived" json:"arrived"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

// Position returns the stored coordinate.
func (p *DeliveryProgress) Position() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}
