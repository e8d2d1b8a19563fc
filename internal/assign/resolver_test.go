package assign

import (
	"context"
	"testing"

	"droneDeliveryTracker/internal/events"
	"droneDeliveryTracker/internal/geo"
	"droneDeliveryTracker/internal/testutil"
	"droneDeliveryTracker/models"
	"droneDeliveryTracker/repository"
)

type stubRoutes struct {
	route *models.Route
}

func (s stubRoutes) Build(ctx context.Context, pickup, dropoff string) (*models.Route, error) {
	return s.route, nil
}

type resolverEnv struct {
	resolver *Resolver
	orders   *repository.OrderRepository
	drones   *repository.DroneRepository
	assigns  *repository.AssignmentRepository
	progress *repository.ProgressRepository
	bus      *events.Bus
	userID   int64
}

func newResolverEnv(t *testing.T, name string) *resolverEnv {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)

	orders := repository.NewOrderRepository(d)
	drones := repository.NewDroneRepository(d)
	assigns := repository.NewAssignmentRepository(d)
	progress := repository.NewProgressRepository(d)
	users := repository.NewUserRepository(d)

	u, err := users.Create(context.Background(), "tester", models.RoleEndUser)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	route := &models.Route{
		Pickup:  models.Coordinate{Lat: 10.7700, Lng: 106.7000},
		Dropoff: models.Coordinate{Lat: 10.8150, Lng: 106.7000},
	}
	route.DistanceKm = geo.Distance(route.Pickup, route.Dropoff)
	route.EtaMinutes = geo.EtaMinutes(route.DistanceKm, geo.AssumedSpeedKmh)

	bus := events.NewBus()
	resolver := NewResolver(orders, drones, assigns, progress, stubRoutes{route: route}, nil, bus, nil)

	return &resolverEnv{
		resolver: resolver,
		orders:   orders,
		drones:   drones,
		assigns:  assigns,
		progress: progress,
		bus:      bus,
		userID:   u.ID,
	}
}

func (e *resolverEnv) newOrder(t *testing.T) *models.Order {
	t.Helper()
	o, err := e.orders.Create(context.Background(), &models.Order{
		MerchantAddress: "12 Nguyen Hue, District 1",
		DeliveryAddress: "45 Le Loi, District 3",
		SubmittedBy:     e.userID,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestResolver_AssignPicksChargedIdleDrone(t *testing.T) {
	env := newResolverEnv(t, "assignpick")
	ctx := context.Background()

	low, _ := env.drones.Create(ctx, &models.Drone{Name: "low", BatteryPercent: 10})
	ok, _ := env.drones.Create(ctx, &models.Drone{Name: "ok", BatteryPercent: 25})
	busy, _ := env.drones.Create(ctx, &models.Drone{Name: "busy", BatteryPercent: 90})
	if err := env.drones.UpdateStatus(ctx, busy.ID, models.DroneStatusDelivering); err != nil {
		t.Fatalf("seed busy: %v", err)
	}

	order := env.newOrder(t)

	var published []models.OrderStatus
	defer env.bus.Subscribe(order.ID, func(s models.OrderStatus) { published = append(published, s) })()

	a, err := env.resolver.Assign(ctx, order.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.DroneID != ok.ID {
		t.Fatalf("expected drone %d claimed, got %d", ok.ID, a.DroneID)
	}
	if a.Status != models.AssignmentStatusAssigned {
		t.Fatalf("assignment status: %s", a.Status)
	}
	if a.DistanceKm <= 0 || a.EtaMinutes <= 0 {
		t.Fatalf("route metrics missing: %+v", a)
	}

	claimed, _ := env.drones.GetByID(ctx, ok.ID)
	if claimed.Status != models.DroneStatusDelivering {
		t.Fatalf("claimed drone status: %s", claimed.Status)
	}
	if claimed.Lat != a.PickupLat || claimed.Lng != a.PickupLng {
		t.Fatalf("drone not moved to pickup: %+v", claimed)
	}
	untouched, _ := env.drones.GetByID(ctx, low.ID)
	if untouched.Status != models.DroneStatusIdle {
		t.Fatalf("low-battery drone should stay idle: %s", untouched.Status)
	}

	o, _ := env.orders.GetByID(ctx, order.ID)
	if o.Status != models.OrderStatusShipping {
		t.Fatalf("order status: %s", o.Status)
	}
	if len(published) != 1 || published[0] != models.OrderStatusShipping {
		t.Fatalf("expected shipping published, got %v", published)
	}
}

func TestResolver_AssignNoEligibleDrone(t *testing.T) {
	env := newResolverEnv(t, "assignnone")
	ctx := context.Background()

	if _, err := env.drones.Create(ctx, &models.Drone{Name: "weak", BatteryPercent: 20}); err != nil {
		t.Fatalf("seed drone: %v", err)
	}
	order := env.newOrder(t)

	if _, err := env.resolver.Assign(ctx, order.ID); err != ErrNoDroneAvailable {
		t.Fatalf("expected ErrNoDroneAvailable, got %v", err)
	}

	// Nothing mutated: order stays pending, no assignment recorded.
	o, _ := env.orders.GetByID(ctx, order.ID)
	if o.Status != models.OrderStatusPending {
		t.Fatalf("order mutated: %s", o.Status)
	}
	if a, _ := env.assigns.GetByOrderID(ctx, order.ID); a != nil {
		t.Fatalf("unexpected assignment: %+v", a)
	}
}

func TestResolver_AssignRejectsNonPendingAndDuplicate(t *testing.T) {
	env := newResolverEnv(t, "assigndup")
	ctx := context.Background()

	if _, err := env.drones.Create(ctx, &models.Drone{Name: "a1", BatteryPercent: 95}); err != nil {
		t.Fatalf("seed drone: %v", err)
	}
	order := env.newOrder(t)

	if _, err := env.resolver.Assign(ctx, order.ID); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := env.resolver.Assign(ctx, order.ID); err != ErrOrderNotPending {
		t.Fatalf("expected ErrOrderNotPending, got %v", err)
	}
	if _, err := env.resolver.Assign(ctx, 9999); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestResolver_CompleteRequiresArrival(t *testing.T) {
	env := newResolverEnv(t, "complete")
	ctx := context.Background()

	if _, err := env.drones.Create(ctx, &models.Drone{Name: "c1", BatteryPercent: 80}); err != nil {
		t.Fatalf("seed drone: %v", err)
	}
	order := env.newOrder(t)
	a, err := env.resolver.Assign(ctx, order.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := env.resolver.Complete(ctx, order.ID); err != ErrNotArrived {
		t.Fatalf("expected ErrNotArrived, got %v", err)
	}

	if err := env.progress.MarkArrived(ctx, order.ID); err != nil {
		t.Fatalf("mark arrived: %v", err)
	}
	if err := env.resolver.Complete(ctx, order.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	o, _ := env.orders.GetByID(ctx, order.ID)
	if o.Status != models.OrderStatusCompleted {
		t.Fatalf("order status: %s", o.Status)
	}
	got, _ := env.assigns.GetByOrderID(ctx, order.ID)
	if got.Status != models.AssignmentStatusDelivered {
		t.Fatalf("assignment status: %s", got.Status)
	}
	drone, _ := env.drones.GetByID(ctx, a.DroneID)
	if drone.Status != models.DroneStatusIdle || drone.Lat != a.DropoffLat || drone.Lng != a.DropoffLng {
		t.Fatalf("drone not released at drop-off: %+v", drone)
	}
	if pos, _ := env.progress.Position(ctx, order.ID); pos != nil {
		t.Fatalf("progress should be cleared")
	}

	if err := env.resolver.Complete(ctx, order.ID); err != ErrOrderTerminal {
		t.Fatalf("expected ErrOrderTerminal on repeat, got %v", err)
	}
}

func TestResolver_CancelReleasesDrone(t *testing.T) {
	env := newResolverEnv(t, "cancel")
	ctx := context.Background()

	if _, err := env.drones.Create(ctx, &models.Drone{Name: "x1", BatteryPercent: 70}); err != nil {
		t.Fatalf("seed drone: %v", err)
	}
	order := env.newOrder(t)
	a, err := env.resolver.Assign(ctx, order.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	var published []models.OrderStatus
	defer env.bus.Subscribe(order.ID, func(s models.OrderStatus) { published = append(published, s) })()

	if err := env.resolver.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	o, _ := env.orders.GetByID(ctx, order.ID)
	if o.Status != models.OrderStatusCancelled {
		t.Fatalf("order status: %s", o.Status)
	}
	got, _ := env.assigns.GetByOrderID(ctx, order.ID)
	if got.Status != models.AssignmentStatusFailed {
		t.Fatalf("assignment status: %s", got.Status)
	}
	drone, _ := env.drones.GetByID(ctx, a.DroneID)
	if drone.Status != models.DroneStatusIdle {
		t.Fatalf("drone not released: %+v", drone)
	}
	if len(published) != 1 || published[0] != models.OrderStatusCancelled {
		t.Fatalf("expected cancelled published, got %v", published)
	}

	if err := env.resolver.Cancel(ctx, order.ID); err != ErrOrderTerminal {
		t.Fatalf("expected ErrOrderTerminal on repeat, got %v", err)
	}
}

func TestResolver_CancelPendingOrderWithoutAssignment(t *testing.T) {
	env := newResolverEnv(t, "cancelpending")
	ctx := context.Background()

	order := env.newOrder(t)
	if err := env.resolver.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	o, _ := env.orders.GetByID(ctx, order.ID)
	if o.Status != models.OrderStatusCancelled {
		t.Fatalf("order status: %s", o.Status)
	}
}
