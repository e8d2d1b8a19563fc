package models

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order represents a customer order, linked to its submitting User.
// Addresses are free text and resolved to coordinates at assignment time.
type Order struct {
	ID              int64       `db:"id" json:"id"`
	MerchantAddress string      `db:"merchant_address" json:"merchant_address"`
	DeliveryAddress string      `db:"delivery_address" json:"delivery_address"`
	SubmittedBy     int64       `db:"submitted_by" json:"submitted_by"`
	Status          OrderStatus `db:"status" json:"status"`
	PlacementAt     string      `db:"placement_date" json:"placement_date"`
}
