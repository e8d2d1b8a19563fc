package route

import (
	"context"
	"testing"

	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

// stubGeocoder returns canned coordinates per address; unknown addresses stay
// unresolved, mirroring the geocoder's nil-result contract.
type stubGeocoder struct {
	known map[string]models.Coordinate
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*models.GeocodeResult, error) {
	c, ok := s.known[address]
	if !ok {
		return nil, nil
	}
	return &models.GeocodeResult{Coordinate: c, DisplayName: address}, nil
}

func TestBuild_ResolvesBothEndpoints(t *testing.T) {
	g := &stubGeocoder{known: map[string]models.Coordinate{
		"merchant": {Lat: 10.77, Lng: 106.70},
		"customer": {Lat: 10.80, Lng: 106.65},
	}}
	p := NewPlanner(g, logger.Nop())

	r, err := p.Build(context.Background(), "merchant", "customer")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Pickup.Lat != 10.77 || r.Dropoff.Lng != 106.65 {
		t.Fatalf("unexpected endpoints: %+v", r)
	}
	if r.DistanceKm <= 0 {
		t.Fatalf("expected positive distance, got %v", r.DistanceKm)
	}
	if r.EtaMinutes <= 0 {
		t.Fatalf("expected positive ETA, got %v", r.EtaMinutes)
	}
}

func TestBuild_FallsBackWhenUnresolved(t *testing.T) {
	p := NewPlanner(&stubGeocoder{}, logger.Nop())

	r, err := p.Build(context.Background(), "123 Le Loi, Q1, Ho Chi Minh City", "unknown street")
	if err != nil {
		t.Fatalf("route must build without failing: %v", err)
	}
	if r.Pickup != DefaultFallback || r.Dropoff != DefaultFallback {
		t.Fatalf("expected fallback endpoints, got %+v", r)
	}
	if r.DistanceKm != 0 {
		t.Fatalf("identical fallback endpoints should give zero distance, got %v", r.DistanceKm)
	}
}

func TestBuild_EtaUsesAssumedSpeed(t *testing.T) {
	// ~15 km apart at 30 km/h should come out to about 30 minutes.
	g := &stubGeocoder{known: map[string]models.Coordinate{
		"a": {Lat: 10.70, Lng: 106.60},
		"b": {Lat: 10.835, Lng: 106.60},
	}}
	p := NewPlanner(g, logger.Nop())

	r, err := p.Build(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.EtaMinutes < 28 || r.EtaMinutes > 32 {
		t.Fatalf("ETA = %d min, expected ~30", r.EtaMinutes)
	}
}
