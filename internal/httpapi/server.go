package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"droneDeliveryTracker/internal/assign"
	"droneDeliveryTracker/internal/auth"
	"droneDeliveryTracker/internal/events"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/internal/sim"
	"droneDeliveryTracker/models"
	"droneDeliveryTracker/repository"
)

// ProgressReader exposes the persisted delivery progress to handlers.
type ProgressReader interface {
	Position(ctx context.Context, orderID int64) (*models.Coordinate, error)
	Arrived(ctx context.Context, orderID int64) (bool, error)
}

// Server holds the HTTP surface and its collaborators.
type Server struct {
	secret      string
	users       repository.UserRepositoryI
	orders      repository.OrderRepositoryI
	drones      repository.DroneRepositoryI
	assignments repository.AssignmentRepositoryI
	progress    ProgressReader
	resolver    *assign.Resolver
	hub         *trackHub
	log         logger.Logger
}

// New wires a Server. The tracker and bus feed the websocket hub.
func New(secret string, users repository.UserRepositoryI, orders repository.OrderRepositoryI,
	drones repository.DroneRepositoryI, assignments repository.AssignmentRepositoryI,
	progress ProgressReader, resolver *assign.Resolver, tracker *sim.Tracker,
	bus *events.Bus, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		secret:      secret,
		users:       users,
		orders:      orders,
		drones:      drones,
		assignments: assignments,
		progress:    progress,
		resolver:    resolver,
		hub:         newTrackHub(tracker, assignments, bus, log),
		log:         log,
	}
}

// Router assembles the full route tree. No blanket timeout middleware: the
// tracking websocket is long-lived and repository calls carry their own
// query timeouts.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(s.secret))

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Get("/", s.listMyOrders)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Use(s.orderCtx)
			r.Get("/", s.getOrder)
			r.Get("/track", s.trackOrder)
			r.Post("/cancel", s.cancelOrder)
			r.Post("/complete", s.completeOrder)
			r.With(auth.RequireAdmin).Post("/assign", s.assignOrder)
		})
	})

	r.Route("/drones", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/", s.createDrone)
		r.Get("/", s.listDrones)
		r.Route("/{droneID}", func(r chi.Router) {
			r.Get("/", s.getDrone)
			r.Patch("/status", s.updateDroneStatus)
		})
	})

	return r
}

// caller resolves the authenticated principal to a user row, provisioning it
// on first sight so tokens minted elsewhere work without a signup flow.
func (s *Server) caller(r *http.Request) (*models.User, *auth.Principal, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, nil, errMissingPrincipal
	}
	u, err := s.users.GetByUsername(r.Context(), p.Name)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		role := models.RoleEndUser
		if p.Kind == "admin" {
			role = models.RoleAdmin
		}
		u, err = s.users.Create(r.Context(), p.Name, role)
		if err != nil {
			return nil, nil, err
		}
	}
	return u, p, nil
}

// canAccessOrder reports whether the caller owns the order or is an admin.
func canAccessOrder(u *models.User, p *auth.Principal, o *models.Order) bool {
	return p.Kind == "admin" || o.SubmittedBy == u.ID
}
