package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"droneDeliveryTracker/internal/events"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/internal/sim"
	"droneDeliveryTracker/models"
	"droneDeliveryTracker/repository"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TrackEvent is one message on the tracking stream.
type TrackEvent struct {
	Type        string             `json:"type"` // "progress", "arrived" or "status"
	OrderID     int64              `json:"order_id"`
	Position    *models.Coordinate `json:"position,omitempty"`
	RemainingKm *float64           `json:"remaining_km,omitempty"`
	Status      models.OrderStatus `json:"status,omitempty"`
}

// trackHub fans tracking events out to websocket clients grouped by order.
// The first subscriber of an order starts its simulator; the last one leaving
// stops it. The persisted position makes the stop/restart cycle seamless.
type trackHub struct {
	tracker     *sim.Tracker
	assignments repository.AssignmentRepositoryI
	bus         *events.Bus
	log         logger.Logger

	mu    sync.Mutex
	rooms map[int64]*trackRoom

	// simMu serializes simulator start/stop transitions. It is never held
	// together with a blocked broadcast, so ticks cannot deadlock against it.
	simMu sync.Mutex
}

type trackRoom struct {
	clients     map[string]chan TrackEvent
	unsubscribe func()
}

func newTrackHub(tracker *sim.Tracker, assignments repository.AssignmentRepositoryI,
	bus *events.Bus, log logger.Logger) *trackHub {
	if log == nil {
		log = logger.Nop()
	}
	return &trackHub{
		tracker:     tracker,
		assignments: assignments,
		bus:         bus,
		log:         log,
		rooms:       make(map[int64]*trackRoom),
	}
}

// Join registers a client for the order's stream and returns its id and event
// channel. The channel is closed by Leave.
func (h *trackHub) Join(ctx context.Context, a *models.DeliveryAssignment) (string, chan TrackEvent, error) {
	orderID := a.OrderID

	h.mu.Lock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = &trackRoom{clients: make(map[string]chan TrackEvent)}
		if h.bus != nil {
			room.unsubscribe = h.bus.Subscribe(orderID, func(st models.OrderStatus) {
				h.broadcast(orderID, TrackEvent{Type: "status", OrderID: orderID, Status: st})
			})
		}
		h.rooms[orderID] = room
	}
	id := uuid.NewString()
	ch := make(chan TrackEvent, eventBuffer)
	room.clients[id] = ch
	first := len(room.clients) == 1
	h.mu.Unlock()

	if first {
		if err := h.startTracking(ctx, a); err != nil {
			h.Leave(orderID, id)
			return "", nil, err
		}
	}
	return id, ch, nil
}

// Leave removes a client; the last client of an order halts its simulator.
func (h *trackHub) Leave(orderID int64, clientID string) {
	h.mu.Lock()
	room, ok := h.rooms[orderID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if ch, ok := room.clients[clientID]; ok {
		delete(room.clients, clientID)
		close(ch)
	}
	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, orderID)
	}
	h.mu.Unlock()

	if empty {
		if room.unsubscribe != nil {
			room.unsubscribe()
		}
		// Only stop the simulator when no fresh room has been opened for the
		// order in the meantime; a rejoining client keeps it running.
		h.simMu.Lock()
		h.mu.Lock()
		_, reopened := h.rooms[orderID]
		h.mu.Unlock()
		if !reopened {
			h.tracker.Stop(orderID)
		}
		h.simMu.Unlock()
	}
}

// startTracking marks the assignment in transit and launches the simulator.
// The simulator outlives the originating request, so it runs detached from
// the request context; Leave is responsible for stopping it.
func (h *trackHub) startTracking(ctx context.Context, a *models.DeliveryAssignment) error {
	if a.Status == models.AssignmentStatusAssigned {
		if err := h.assignments.AdvanceStatus(ctx, a.ID, models.AssignmentStatusInTransit); err != nil {
			h.log.Error("assignment_advance_failed", err)
		}
	}

	orderID := a.OrderID
	onProgress := func(pos models.Coordinate, remainingKm float64) {
		rem := remainingKm
		h.broadcast(orderID, TrackEvent{
			Type:        "progress",
			OrderID:     orderID,
			Position:    &pos,
			RemainingKm: &rem,
		})
	}
	onArrived := func(pos models.Coordinate) {
		h.broadcast(orderID, TrackEvent{Type: "arrived", OrderID: orderID, Position: &pos})
	}

	h.simMu.Lock()
	_, err := h.tracker.Start(context.Background(), orderID, a.Route(), onProgress, onArrived)
	if err == sim.ErrAlreadyTracking {
		// The last subscriber just left and its stop has not landed yet;
		// finish that stop and start fresh from the persisted position.
		h.tracker.Stop(orderID)
		_, err = h.tracker.Start(context.Background(), orderID, a.Route(), onProgress, onArrived)
	}
	h.simMu.Unlock()
	if err == sim.ErrAlreadyArrived {
		// Arrival raced the join; report it instead of failing the stream.
		dropoff := a.Dropoff()
		h.broadcast(orderID, TrackEvent{Type: "arrived", OrderID: orderID, Position: &dropoff})
		return nil
	}
	return err
}

// broadcast delivers under the hub lock so channels cannot close mid-send.
// Slow consumers drop events rather than stall the simulator tick.
func (h *trackHub) broadcast(orderID int64, ev TrackEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	for _, ch := range room.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// trackOrder is the GET /orders/{id}/track websocket endpoint.
func (s *Server) trackOrder(w http.ResponseWriter, r *http.Request) {
	o := orderFromCtx(r)
	u, p, err := s.caller(r)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	if !canAccessOrder(u, p, o) {
		render.Render(w, r, httpErrForbidden("not your order"))
		return
	}

	// A finished order has nothing to stream; report the status once.
	if o.Status.Terminal() {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(TrackEvent{Type: "status", OrderID: o.ID, Status: o.Status})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	a, err := s.assignments.GetByOrderID(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	if a == nil {
		render.Render(w, r, httpErrConflict(errors.New("order has no assignment to track")))
		return
	}

	arrived, err := s.progress.Arrived(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	if arrived {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		dropoff := a.Dropoff()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(TrackEvent{Type: "arrived", OrderID: o.ID, Position: &dropoff})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	clientID, ch, err := s.hub.Join(r.Context(), a)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Leave(o.ID, clientID)
		return
	}

	go s.streamEvents(conn, o.ID, clientID, ch)
}

// streamEvents pumps hub events to one websocket connection until the client
// disconnects or the channel closes.
func (s *Server) streamEvents(conn *websocket.Conn, orderID int64, clientID string, ch chan TrackEvent) {
	defer func() {
		s.hub.Leave(orderID, clientID)
		conn.Close()
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}
