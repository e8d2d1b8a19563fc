package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"droneDeliveryTracker/internal/assign"
	"droneDeliveryTracker/models"
)

var errMissingPrincipal = errors.New("missing principal")

type orderCtxKey struct{}

// CreateOrderRequest is the POST /orders payload.
type CreateOrderRequest struct {
	MerchantAddress string `json:"merchant_address"`
	DeliveryAddress string `json:"delivery_address"`
}

func (req *CreateOrderRequest) Bind(r *http.Request) error {
	req.MerchantAddress = strings.TrimSpace(req.MerchantAddress)
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	if req.MerchantAddress == "" {
		return errors.New("merchant_address is required")
	}
	if req.DeliveryAddress == "" {
		return errors.New("delivery_address is required")
	}
	return nil
}

// OrderView is the external view of an order.
type OrderView struct {
	*models.Order
}

func (v *OrderView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// OrderDetailView adds the assignment and last known position to an order.
type OrderDetailView struct {
	*models.Order
	Assignment *models.DeliveryAssignment `json:"assignment,omitempty"`
	Position   *models.Coordinate         `json:"position,omitempty"`
	Arrived    bool                       `json:"arrived"`
}

func (v *OrderDetailView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// AssignmentView is the external view of a delivery assignment.
type AssignmentView struct {
	*models.DeliveryAssignment
}

func (v *AssignmentView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// orderCtx loads the order named in the URL into the request context.
func (s *Server) orderCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			render.Render(w, r, httpErrInvalidRequest(errors.New("invalid order id")))
			return
		}
		o, err := s.orders.GetByID(r.Context(), id)
		if err != nil {
			render.Render(w, r, httpErrUnexpected(err))
			return
		}
		if o == nil {
			render.Render(w, r, httpErrNotFound("order not found"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), orderCtxKey{}, o)))
	})
}

func orderFromCtx(r *http.Request) *models.Order {
	o, _ := r.Context().Value(orderCtxKey{}).(*models.Order)
	return o
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	u, _, err := s.caller(r)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}

	req := &CreateOrderRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}

	o, err := s.orders.Create(r.Context(), &models.Order{
		MerchantAddress: req.MerchantAddress,
		DeliveryAddress: req.DeliveryAddress,
		SubmittedBy:     u.ID,
	})
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.Render(w, r, &OrderView{Order: o})
}

func (s *Server) listMyOrders(w http.ResponseWriter, r *http.Request) {
	u, _, err := s.caller(r)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	orders, err := s.orders.ListByUserID(r.Context(), u.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	outs := make([]render.Renderer, 0, len(orders))
	for i := range orders {
		outs = append(outs, &OrderView{Order: &orders[i]})
	}
	render.RenderList(w, r, outs)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
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

	a, err := s.assignments.GetByOrderID(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	pos, err := s.progress.Position(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	arrived, err := s.progress.Arrived(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}

	render.Render(w, r, &OrderDetailView{
		Order:      o,
		Assignment: a,
		Position:   pos,
		Arrived:    arrived,
	})
}

func (s *Server) assignOrder(w http.ResponseWriter, r *http.Request) {
	o := orderFromCtx(r)
	a, err := s.resolver.Assign(r.Context(), o.ID)
	if err != nil {
		render.Render(w, r, assignErr(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.Render(w, r, &AssignmentView{DeliveryAssignment: a})
}

func (s *Server) completeOrder(w http.ResponseWriter, r *http.Request) {
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
	if err := s.resolver.Complete(r.Context(), o.ID); err != nil {
		render.Render(w, r, assignErr(err))
		return
	}
	render.NoContent(w, r)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
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
	if err := s.resolver.Cancel(r.Context(), o.ID); err != nil {
		render.Render(w, r, assignErr(err))
		return
	}
	render.NoContent(w, r)
}

// assignErr maps resolver errors onto HTTP status codes.
func assignErr(err error) render.Renderer {
	switch {
	case errors.Is(err, assign.ErrOrderNotFound):
		return httpErrNotFound(err.Error())
	case errors.Is(err, assign.ErrOrderNotPending),
		errors.Is(err, assign.ErrAlreadyAssigned),
		errors.Is(err, assign.ErrNoAssignment),
		errors.Is(err, assign.ErrNotArrived),
		errors.Is(err, assign.ErrOrderTerminal),
		errors.Is(err, assign.ErrNoDroneAvailable):
		return httpErrConflict(err)
	default:
		return httpErrUnexpected(err)
	}
}
