package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"droneDeliveryTracker/internal/geo"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

// testRoute is ~5 km of northward flight.
func testRoute() *models.Route {
	pickup := models.Coordinate{Lat: 10.7700, Lng: 106.7000}
	dropoff := models.Coordinate{Lat: 10.8150, Lng: 106.7000}
	return &models.Route{
		Pickup:     pickup,
		Dropoff:    dropoff,
		DistanceKm: geo.Distance(pickup, dropoff),
		EtaMinutes: geo.EtaMinutes(geo.Distance(pickup, dropoff), geo.AssumedSpeedKmh),
	}
}

func fastOptions() Options {
	return Options{TickInterval: time.Millisecond, StepFraction: 0.15}
}

func TestPlannedTicks_DeterministicCount(t *testing.T) {
	// 5 km at 0.15 per tick with a 50 m threshold follows the geometric decay
	// 5 * 0.85^n < 0.05, which first holds at n = 29.
	if got := PlannedTicks(5, 0.15, 0.05); got != 29 {
		t.Fatalf("PlannedTicks(5, 0.15, 0.05) = %d, want 29", got)
	}
	// Stable across invocations: no randomness in the interpolation.
	for i := 0; i < 10; i++ {
		if got := PlannedTicks(5, 0.15, 0.05); got != 29 {
			t.Fatalf("unstable tick count: %d", got)
		}
	}
	if got := PlannedTicks(0.01, 0.15, 0.05); got != 0 {
		t.Fatalf("already within threshold should need 0 ticks, got %d", got)
	}
}

func TestSimulator_ArrivesWithMonotonicProgress(t *testing.T) {
	r := testRoute()
	store := NewMemoryStore()
	s := New(1, r, nil, store, fastOptions(), logger.Nop())

	var mu sync.Mutex
	var remainders []float64
	arrived := make(chan models.Coordinate, 1)

	s.OnProgress(func(_ models.Coordinate, remainingKm float64) {
		mu.Lock()
		remainders = append(remainders, remainingKm)
		mu.Unlock()
	})
	s.OnArrived(func(pos models.Coordinate) { arrived <- pos })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case pos := <-arrived:
		if pos != r.Dropoff {
			t.Fatalf("arrival position %+v, want drop-off %+v", pos, r.Dropoff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("simulator did not arrive in time")
	}
	<-s.Done()

	if s.State() != StateArrived {
		t.Fatalf("state = %s, want arrived", s.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(remainders) == 0 {
		t.Fatal("no progress callbacks fired")
	}
	for i := 1; i < len(remainders); i++ {
		if remainders[i] > remainders[i-1] {
			t.Fatalf("remaining distance increased at tick %d: %v -> %v", i, remainders[i-1], remainders[i])
		}
	}
	// Bounded arrival: the geometric decay bounds the tick count.
	planned := PlannedTicks(r.DistanceKm, 0.15, geo.ArrivalThresholdKm)
	if len(remainders) > planned+1 {
		t.Fatalf("took %d ticks, planned at most %d", len(remainders), planned+1)
	}

	ok, err := store.Arrived(context.Background(), 1)
	if err != nil || !ok {
		t.Fatalf("arrival flag not persisted: ok=%v err=%v", ok, err)
	}
}

func TestSimulator_ResumeMatchesUninterruptedRun(t *testing.T) {
	r := testRoute()

	// Uninterrupted run: record every position.
	full := New(1, r, nil, NewMemoryStore(), fastOptions(), logger.Nop())
	var mu sync.Mutex
	var fullTrail []models.Coordinate
	full.OnProgress(func(pos models.Coordinate, _ float64) {
		mu.Lock()
		fullTrail = append(fullTrail, pos)
		mu.Unlock()
	})
	if err := full.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-full.Done()

	mu.Lock()
	if len(fullTrail) < 10 {
		mu.Unlock()
		t.Fatalf("expected a longer trail, got %d ticks", len(fullTrail))
	}
	mid := fullTrail[9]
	rest := len(fullTrail) - 10
	mu.Unlock()

	// Resumed run starting from the 10th recorded position must take the same
	// number of ticks to arrive as the remainder of the uninterrupted run.
	resumed := New(2, r, &mid, NewMemoryStore(), fastOptions(), logger.Nop())
	ticks := 0
	resumed.OnProgress(func(models.Coordinate, float64) { ticks++ })
	if err := resumed.Start(context.Background()); err != nil {
		t.Fatalf("start resumed: %v", err)
	}
	<-resumed.Done()

	if resumed.State() != StateArrived {
		t.Fatalf("resumed state = %s, want arrived", resumed.State())
	}
	if ticks != rest {
		t.Fatalf("resumed run took %d ticks, uninterrupted remainder was %d", ticks, rest)
	}
}

func TestSimulator_StopCancelsPendingTicks(t *testing.T) {
	r := testRoute()
	s := New(1, r, nil, NewMemoryStore(), Options{TickInterval: 50 * time.Millisecond, StepFraction: 0.15}, logger.Nop())

	ticks := 0
	s.OnProgress(func(models.Coordinate, float64) { ticks++ })
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	<-s.Done()

	if s.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", s.State())
	}
	seen := ticks
	time.Sleep(150 * time.Millisecond)
	if ticks != seen {
		t.Fatalf("callbacks fired after stop: %d -> %d", seen, ticks)
	}

	// Stopping again is a no-op.
	s.Stop()
}

// gatedStore blocks the first SavePosition until released, holding a tick
// in flight so tests can race Stop against it.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	saves int
}

func (g *gatedStore) SavePosition(ctx context.Context, orderID int64, pos models.Coordinate) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.mu.Lock()
	g.saves++
	g.mu.Unlock()
	return g.MemoryStore.SavePosition(ctx, orderID, pos)
}

func (g *gatedStore) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}

func TestSimulator_StopWaitsForInFlightTick(t *testing.T) {
	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := New(1, testRoute(), nil, store, fastOptions(), logger.Nop())

	var mu sync.Mutex
	stopReturned := false
	lateCallbacks := 0
	s.OnProgress(func(models.Coordinate, float64) {
		mu.Lock()
		if stopReturned {
			lateCallbacks++
		}
		mu.Unlock()
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A tick is now blocked inside the store write. Stop must not return
	// until that tick has fully drained.
	<-store.entered
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.release)
	}()
	s.Stop()

	mu.Lock()
	stopReturned = true
	mu.Unlock()
	savesAtStop := store.saveCount()

	<-s.Done()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	late := lateCallbacks
	mu.Unlock()
	if late != 0 {
		t.Fatalf("progress callbacks fired after Stop returned: %d", late)
	}
	if got := store.saveCount(); got != savesAtStop {
		t.Fatalf("positions persisted after Stop returned: %d -> %d", savesAtStop, got)
	}
}

func TestSimulator_StartTwiceFails(t *testing.T) {
	s := New(1, testRoute(), nil, NewMemoryStore(), fastOptions(), logger.Nop())
	defer s.Stop()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second start must fail")
	}
}

func TestSimulator_ResumeSkipsPickup(t *testing.T) {
	r := testRoute()
	resume := geo.Interpolate(r.Pickup, r.Dropoff, 0.5)
	s := New(1, r, &resume, NewMemoryStore(), fastOptions(), logger.Nop())
	if got := s.Position(); got != resume {
		t.Fatalf("start position %+v, want resume point %+v", got, resume)
	}
	if s.RemainingKm() >= r.DistanceKm {
		t.Fatalf("resume point should be closer than pickup")
	}
}
