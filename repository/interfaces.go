package repository

import (
	"context"

	"droneDeliveryTracker/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, role string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
}

// DroneRepositoryI defines operations on Drone entities.
type DroneRepositoryI interface {
	Create(ctx context.Context, d *models.Drone) (*models.Drone, error)
	GetByID(ctx context.Context, id int64) (*models.Drone, error)
	ListEligible(ctx context.Context) ([]models.Drone, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Release(ctx context.Context, id int64, lat, lng float64) error
	UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error
	UpdatePosition(ctx context.Context, id int64, lat, lng float64) error
	List(ctx context.Context, p ListDronesParams) ([]models.Drone, error)
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepositoryI defines operations on DeliveryAssignment entities.
// Assignments are append-only: records are created once and their status only
// advances; they are never deleted.
type AssignmentRepositoryI interface {
	Create(ctx context.Context, a *models.DeliveryAssignment) (*models.DeliveryAssignment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*models.DeliveryAssignment, error)
	GetByDroneID(ctx context.Context, droneID int64) (*models.DeliveryAssignment, error)
	AdvanceStatus(ctx context.Context, id int64, status models.AssignmentStatus) error
}
