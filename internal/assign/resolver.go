package assign

import (
	"context"
	"errors"
	"fmt"

	"droneDeliveryTracker/internal/events"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/internal/sim"
	"droneDeliveryTracker/models"
	"droneDeliveryTracker/repository"
)

var (
	// ErrNoDroneAvailable is returned when no idle drone with sufficient
	// battery can be claimed for an order.
	ErrNoDroneAvailable = errors.New("no drone available for assignment")

	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
	ErrAlreadyAssigned = errors.New("order already has an assignment")
	ErrNoAssignment    = errors.New("order has no assignment")
	ErrNotArrived      = errors.New("drone has not arrived at the drop-off")
	ErrOrderTerminal   = errors.New("order is already completed or cancelled")
)

// RouteBuilder turns a pair of addresses into a delivery route.
type RouteBuilder interface {
	Build(ctx context.Context, pickupAddress, dropoffAddress string) (*models.Route, error)
}

// Resolver matches pending orders to eligible drones and drives the order and
// assignment lifecycles.
type Resolver struct {
	Orders      repository.OrderRepositoryI
	Drones      repository.DroneRepositoryI
	Assignments repository.AssignmentRepositoryI
	Progress    sim.ProgressStore
	Routes      RouteBuilder
	Tracker     *sim.Tracker
	Bus         *events.Bus
	Log         logger.Logger
}

// NewResolver wires a Resolver; bus and log may be nil.
func NewResolver(orders repository.OrderRepositoryI, drones repository.DroneRepositoryI,
	assignments repository.AssignmentRepositoryI, progress sim.ProgressStore,
	routes RouteBuilder, tracker *sim.Tracker, bus *events.Bus, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		Orders:      orders,
		Drones:      drones,
		Assignments: assignments,
		Progress:    progress,
		Routes:      routes,
		Tracker:     tracker,
		Bus:         bus,
		Log:         log,
	}
}

// Assign resolves a drone for a pending order: it builds the route, claims the
// first eligible drone, records the assignment, and moves the order to
// shipping. Claiming is a conditional update, so two concurrent calls for the
// same drone cannot both win.
func (r *Resolver) Assign(ctx context.Context, orderID int64) (*models.DeliveryAssignment, error) {
	order, err := r.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}
	existing, err := r.Assignments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAssigned
	}

	route, err := r.Routes.Build(ctx, order.MerchantAddress, order.DeliveryAddress)
	if err != nil {
		return nil, err
	}

	candidates, err := r.Drones.ListEligible(ctx)
	if err != nil {
		return nil, err
	}
	for _, drone := range candidates {
		claimed, err := r.Drones.Claim(ctx, drone.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// Lost the race for this drone, try the next one.
			continue
		}

		assignment, err := r.Assignments.Create(ctx, &models.DeliveryAssignment{
			OrderID:    orderID,
			DroneID:    drone.ID,
			PickupLat:  route.Pickup.Lat,
			PickupLng:  route.Pickup.Lng,
			DropoffLat: route.Dropoff.Lat,
			DropoffLng: route.Dropoff.Lng,
			DistanceKm: route.DistanceKm,
			EtaMinutes: route.EtaMinutes,
		})
		if err != nil {
			// Put the drone back where it was so it stays claimable.
			if relErr := r.Drones.Release(ctx, drone.ID, drone.Lat, drone.Lng); relErr != nil {
				r.Log.Error("drone_release_failed", relErr)
			}
			return nil, fmt.Errorf("create assignment: %w", err)
		}

		if err := r.Drones.UpdatePosition(ctx, drone.ID, route.Pickup.Lat, route.Pickup.Lng); err != nil {
			r.Log.Error("drone_position_failed", err)
		}
		if err := r.Orders.UpdateStatus(ctx, orderID, models.OrderStatusShipping); err != nil {
			return nil, err
		}
		r.publish(orderID, models.OrderStatusShipping)
		r.Log.WithFields(logger.Fields{"order_id": orderID, "drone_id": drone.ID}).
			Info("order_assigned", "drone claimed for order")
		return assignment, nil
	}

	return nil, ErrNoDroneAvailable
}

// Complete closes out a delivery whose drone has reached the drop-off: the
// assignment becomes delivered, the drone is released at the destination, and
// the order completes.
func (r *Resolver) Complete(ctx context.Context, orderID int64) error {
	order, err := r.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return ErrOrderTerminal
	}
	assignment, err := r.Assignments.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return ErrNoAssignment
	}
	arrived, err := r.Progress.Arrived(ctx, orderID)
	if err != nil {
		return err
	}
	if !arrived {
		return ErrNotArrived
	}

	if err := r.Assignments.AdvanceStatus(ctx, assignment.ID, models.AssignmentStatusDelivered); err != nil {
		return err
	}
	if err := r.Drones.Release(ctx, assignment.DroneID, assignment.DropoffLat, assignment.DropoffLng); err != nil {
		return err
	}
	if err := r.Orders.UpdateStatus(ctx, orderID, models.OrderStatusCompleted); err != nil {
		return err
	}
	if err := r.Progress.Clear(ctx, orderID); err != nil {
		r.Log.Error("progress_clear_failed", err)
	}
	r.publish(orderID, models.OrderStatusCompleted)
	r.Log.WithFields(logger.Fields{"order_id": orderID}).Info("order_completed", "delivery confirmed")
	return nil
}

// Cancel aborts an order mid-flight: any running simulator is stopped, the
// assignment is failed, and the drone returns to the idle pool at its last
// known position.
func (r *Resolver) Cancel(ctx context.Context, orderID int64) error {
	order, err := r.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return ErrOrderTerminal
	}

	if r.Tracker != nil {
		r.Tracker.Stop(orderID)
	}

	assignment, err := r.Assignments.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if assignment != nil && assignment.Status != models.AssignmentStatusDelivered && assignment.Status != models.AssignmentStatusFailed {
		if err := r.Assignments.AdvanceStatus(ctx, assignment.ID, models.AssignmentStatusFailed); err != nil {
			return err
		}
		drone, err := r.Drones.GetByID(ctx, assignment.DroneID)
		if err != nil {
			return err
		}
		if drone != nil {
			if err := r.Drones.Release(ctx, drone.ID, drone.Lat, drone.Lng); err != nil {
				return err
			}
		}
	}

	if err := r.Orders.UpdateStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
		return err
	}
	if err := r.Progress.Clear(ctx, orderID); err != nil {
		r.Log.Error("progress_clear_failed", err)
	}
	r.publish(orderID, models.OrderStatusCancelled)
	r.Log.WithFields(logger.Fields{"order_id": orderID}).Info("order_cancelled", "delivery aborted")
	return nil
}

func (r *Resolver) publish(orderID int64, status models.OrderStatus) {
	if r.Bus != nil {
		r.Bus.Publish(orderID, status)
	}
}
