package sim

import (
	"context"
	"errors"
	"sync"

	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

var (
	// ErrAlreadyTracking is returned when a simulator is already active for
	// the order; a second tracker instance must not be started.
	ErrAlreadyTracking = errors.New("tracking already active for order")
	// ErrAlreadyArrived is returned when the persisted arrival flag is set.
	ErrAlreadyArrived = errors.New("delivery already arrived")
)

// Tracker owns the running simulators and enforces one simulator per order id.
type Tracker struct {
	store ProgressStore
	opts  Options
	log   logger.Logger

	mu     sync.Mutex
	active map[int64]*Simulator
}

// NewTracker creates a Tracker using the given store and default options.
func NewTracker(store ProgressStore, opts Options, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		store:  store,
		opts:   opts,
		log:    log,
		active: make(map[int64]*Simulator),
	}
}

// Start restores any persisted position for the order, builds a simulator and
// begins advancing it. The arrival callback also retires the simulator from
// the active set.
func (t *Tracker) Start(ctx context.Context, orderID int64, r *models.Route, onProgress func(models.Coordinate, float64), onArrived func(models.Coordinate)) (*Simulator, error) {
	arrived, err := t.store.Arrived(ctx, orderID)
	if err != nil {
		t.log.Error("progress_read_failed", err)
	}
	if arrived {
		return nil, ErrAlreadyArrived
	}

	resume, err := t.store.Position(ctx, orderID)
	if err != nil {
		// Resuming is best effort; restart from pickup when the read fails.
		t.log.Error("progress_read_failed", err)
		resume = nil
	}

	t.mu.Lock()
	if existing, ok := t.active[orderID]; ok {
		if existing.State() == StateRunning {
			t.mu.Unlock()
			return nil, ErrAlreadyTracking
		}
		delete(t.active, orderID)
	}

	s := New(orderID, r, resume, t.store, t.opts, t.log)
	s.OnProgress(onProgress)
	s.OnArrived(func(pos models.Coordinate) {
		if onArrived != nil {
			onArrived(pos)
		}
		t.remove(orderID, s)
	})
	t.active[orderID] = s
	t.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		t.remove(orderID, s)
		return nil, err
	}
	t.log.Info("tracking_started", "simulator running")
	return s, nil
}

// Stop halts and removes the simulator for the order, if any.
func (t *Tracker) Stop(orderID int64) {
	t.mu.Lock()
	s, ok := t.active[orderID]
	if ok {
		delete(t.active, orderID)
	}
	t.mu.Unlock()
	if ok {
		s.Stop()
		t.log.Info("tracking_stopped", "simulator halted")
	}
}

// StopAll halts every running simulator. Used on shutdown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	sims := make([]*Simulator, 0, len(t.active))
	for id, s := range t.active {
		sims = append(sims, s)
		delete(t.active, id)
	}
	t.mu.Unlock()
	for _, s := range sims {
		s.Stop()
	}
}

// Active returns the running simulator for the order, or nil.
func (t *Tracker) Active(orderID int64) *Simulator {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[orderID]
}

func (t *Tracker) remove(orderID int64, s *Simulator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[orderID] == s {
		delete(t.active, orderID)
	}
}
