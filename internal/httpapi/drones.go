package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"droneDeliveryTracker/models"
	"droneDeliveryTracker/repository"
)

// CreateDroneRequest is the POST /drones payload.
type CreateDroneRequest struct {
	Name           string  `json:"name"`
	Model          string  `json:"model"`
	BatteryPercent int     `json:"battery_percent"`
	MaxSpeedKmh    float64 `json:"max_speed_kmh"`
	PayloadLimitKg float64 `json:"payload_limit_kg"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
}

func (req *CreateDroneRequest) Bind(r *http.Request) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.BatteryPercent < 0 || req.BatteryPercent > 100 {
		return errors.New("battery_percent must be between 0 and 100")
	}
	return nil
}

// UpdateDroneStatusRequest is the PATCH /drones/{id}/status payload.
type UpdateDroneStatusRequest struct {
	Status models.DroneStatus `json:"status"`
}

func (req *UpdateDroneStatusRequest) Bind(r *http.Request) error {
	switch req.Status {
	case models.DroneStatusIdle, models.DroneStatusDelivering,
		models.DroneStatusMaintenance, models.DroneStatusCharging:
		return nil
	default:
		return errors.New("invalid drone status")
	}
}

// DroneView is the external view of a drone.
type DroneView struct {
	*models.Drone
}

func (v *DroneView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// DroneDetailView adds the drone's most recent assignment.
type DroneDetailView struct {
	*models.Drone
	Assignment *models.DeliveryAssignment `json:"assignment,omitempty"`
}

func (v *DroneDetailView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *Server) createDrone(w http.ResponseWriter, r *http.Request) {
	req := &CreateDroneRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	d, err := s.drones.Create(r.Context(), &models.Drone{
		Name:           req.Name,
		Model:          req.Model,
		BatteryPercent: req.BatteryPercent,
		MaxSpeedKmh:    req.MaxSpeedKmh,
		PayloadLimitKg: req.PayloadLimitKg,
		Lat:            req.Lat,
		Lng:            req.Lng,
	})
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.Render(w, r, &DroneView{Drone: d})
}

func (s *Server) getDrone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "droneID"), 10, 64)
	if err != nil {
		render.Render(w, r, httpErrInvalidRequest(errors.New("invalid drone id")))
		return
	}
	d, err := s.drones.GetByID(r.Context(), id)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	if d == nil {
		render.Render(w, r, httpErrNotFound("drone not found"))
		return
	}
	a, err := s.assignments.GetByDroneID(r.Context(), d.ID)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	render.Render(w, r, &DroneDetailView{Drone: d, Assignment: a})
}

func (s *Server) listDrones(w http.ResponseWriter, r *http.Request) {
	var p repository.ListDronesParams
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.DroneStatus(v)
		p.Status = &status
	}
	if v := r.URL.Query().Get("name"); v != "" {
		p.NameContains = &v
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			render.Render(w, r, httpErrInvalidRequest(errors.New("invalid page_size")))
			return
		}
		p.PageSize = n
	}
	if v := r.URL.Query().Get("after_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			render.Render(w, r, httpErrInvalidRequest(errors.New("invalid after_id")))
			return
		}
		p.AfterID = n
	}

	drones, err := s.drones.List(r.Context(), p)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	outs := make([]render.Renderer, 0, len(drones))
	for i := range drones {
		outs = append(outs, &DroneView{Drone: &drones[i]})
	}
	render.RenderList(w, r, outs)
}

func (s *Server) updateDroneStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "droneID"), 10, 64)
	if err != nil {
		render.Render(w, r, httpErrInvalidRequest(errors.New("invalid drone id")))
		return
	}
	d, err := s.drones.GetByID(r.Context(), id)
	if err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	if d == nil {
		render.Render(w, r, httpErrNotFound("drone not found"))
		return
	}

	req := &UpdateDroneStatusRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, httpErrInvalidRequest(err))
		return
	}
	if err := s.drones.UpdateStatus(r.Context(), id, req.Status); err != nil {
		render.Render(w, r, httpErrUnexpected(err))
		return
	}
	d.Status = req.Status
	render.Render(w, r, &DroneView{Drone: d})
}
