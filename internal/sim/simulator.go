package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"droneDeliveryTracker/internal/geo"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

// State is the simulator lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateArrived State = "arrived"
	StateStopped State = "stopped"
)

// Options control tick cadence and motion.
type Options struct {
	// TickInterval is the time between position advances. Default 2s.
	TickInterval time.Duration
	// StepFraction is the fraction of the remaining straight-line distance
	// covered on each tick, producing an ease-out approach. Default 0.15.
	StepFraction float64
	// ArrivalThresholdKm is the remaining distance below which the drone
	// counts as arrived. Default 50 meters.
	ArrivalThresholdKm float64
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = 2 * time.Second
	}
	if o.StepFraction <= 0 || o.StepFraction >= 1 {
		o.StepFraction = 0.15
	}
	if o.ArrivalThresholdKm <= 0 {
		o.ArrivalThresholdKm = geo.ArrivalThresholdKm
	}
	return o
}

// Advance moves fraction of the remaining way from cur toward target.
// Pure position math; the tick loop and tests share it.
func Advance(cur, target models.Coordinate, fraction float64) models.Coordinate {
	return geo.Interpolate(cur, target, fraction)
}

// PlannedTicks returns the number of ticks needed to close distanceKm below
// thresholdKm when each tick covers fraction of the remaining distance.
// The decay is geometric: remaining(n) = distance * (1-fraction)^n. There is
// no randomness anywhere in the interpolation, so the count is stable.
func PlannedTicks(distanceKm, fraction, thresholdKm float64) int {
	if distanceKm < thresholdKm {
		return 0
	}
	if fraction <= 0 || fraction >= 1 || thresholdKm <= 0 {
		return 0
	}
	n := math.Log(thresholdKm/distanceKm) / math.Log(1-fraction)
	return int(math.Ceil(n))
}

// Simulator advances a simulated drone along a route on a timer, emitting
// progress callbacks and detecting arrival. Each tick does bounded work: one
// interpolation and one persistence write. The write is awaited before the
// next tick is taken, so ticks for an order are strictly sequential.
type Simulator struct {
	orderID int64
	route   *models.Route
	store   ProgressStore
	opts    Options
	log     logger.Logger

	onProgress func(pos models.Coordinate, remainingKm float64)
	onArrived  func(pos models.Coordinate)

	mu      sync.Mutex
	state   State
	cur     models.Coordinate
	stop    chan struct{}
	stopped bool
	started bool
	done    chan struct{}

	// tickMu is held for the full duration of a tick, including the store
	// write and callbacks. Stop acquires it after flagging the stop, which
	// makes cancellation synchronous with any tick already in flight.
	tickMu sync.Mutex
}

// New creates a simulator for one order. A non-nil resume position replaces
// the pickup start point, which is what gives the tracker reload-resilience.
func New(orderID int64, r *models.Route, resume *models.Coordinate, store ProgressStore, opts Options, log logger.Logger) *Simulator {
	if log == nil {
		log = logger.Nop()
	}
	start := r.Pickup
	if resume != nil {
		start = *resume
	}
	return &Simulator{
		orderID: orderID,
		route:   r,
		store:   store,
		opts:    opts.withDefaults(),
		log:     log.WithFields(logger.Fields{"order_id": orderID}),
		state:   StateIdle,
		cur:     start,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnProgress registers the per-tick callback. Must be set before Start.
func (s *Simulator) OnProgress(fn func(pos models.Coordinate, remainingKm float64)) {
	s.onProgress = fn
}

// OnArrived registers the arrival callback. Must be set before Start.
func (s *Simulator) OnArrived(fn func(pos models.Coordinate)) {
	s.onArrived = fn
}

// State returns the current lifecycle state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the current simulated position.
func (s *Simulator) Position() models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// RemainingKm returns the current distance to the drop-off point.
func (s *Simulator) RemainingKm() float64 {
	return geo.Distance(s.Position(), s.route.Dropoff)
}

// Done is closed when the tick loop has exited.
func (s *Simulator) Done() <-chan struct{} {
	return s.done
}

// Start transitions idle -> running and launches the tick loop.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start simulator in state %q", state)
	}
	s.state = StateRunning
	s.started = true
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop halts the simulation. Cancellation is deterministic: Stop waits out
// any tick already in flight, so once it returns no further callbacks fire
// and no further positions are persisted. Stopping an already-terminal
// simulator is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.state == StateRunning || s.state == StateIdle {
		s.state = StateStopped
	}
	close(s.stop)
	// A simulator that never started has no loop to close done.
	if !s.started {
		close(s.done)
	}
	s.mu.Unlock()

	// Drain the in-flight tick, if any. Its write and callbacks complete
	// before Stop returns; the next tick sees the stopped state and exits.
	s.tickMu.Lock()
	s.tickMu.Unlock()
}

func (s *Simulator) loop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	defer s.closeDone()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.mu.Lock()
			if s.state == StateRunning {
				s.state = StateStopped
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			if s.tick(ctx) {
				return
			}
		}
	}
}

func (s *Simulator) closeDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// tick advances the position once. It returns true when the loop must exit
// (arrival or a concurrent stop).
func (s *Simulator) tick(ctx context.Context) bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return true
	}
	next := Advance(s.cur, s.route.Dropoff, s.opts.StepFraction)
	remaining := geo.Distance(next, s.route.Dropoff)
	arrived := remaining < s.opts.ArrivalThresholdKm
	if arrived {
		next = s.route.Dropoff
		remaining = 0
		s.state = StateArrived
	}
	s.cur = next
	s.mu.Unlock()

	// Persistence failure is non-fatal: the simulation continues in memory
	// and the next tick's write is the retry.
	if err := s.store.SavePosition(ctx, s.orderID, next); err != nil {
		s.log.Error("progress_save_failed", err)
	}

	if s.onProgress != nil {
		s.onProgress(next, remaining)
	}
	if !arrived {
		return false
	}

	if err := s.store.MarkArrived(ctx, s.orderID); err != nil {
		s.log.Error("arrival_save_failed", err)
	}
	if s.onArrived != nil {
		s.onArrived(next)
	}
	s.log.Info("delivery_arrived", "simulated drone reached drop-off")
	return true
}
