package route

import (
	"context"
	"fmt"

	"droneDeliveryTracker/internal/geo"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/models"
)

// DefaultFallback is the city-center coordinate substituted when an address
// cannot be geocoded. Delivery tracking degrades gracefully rather than
// blocking order flow.
var DefaultFallback = models.Coordinate{Lat: 10.8231, Lng: 106.6297}

// Geocoder resolves a free-text address. A nil result means the address could
// not be resolved; only context cancellation yields an error.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
}

// Planner builds delivery routes from textual addresses.
type Planner struct {
	Geocoder Geocoder
	Fallback models.Coordinate
	SpeedKmh float64
	Log      logger.Logger
}

// NewPlanner creates a Planner with the default fallback coordinate and
// assumed cruising speed.
func NewPlanner(g Geocoder, log logger.Logger) *Planner {
	if log == nil {
		log = logger.Nop()
	}
	return &Planner{
		Geocoder: g,
		Fallback: DefaultFallback,
		SpeedKmh: geo.AssumedSpeedKmh,
		Log:      log,
	}
}

// Build resolves both endpoints and derives the great-circle distance and ETA.
// An unresolvable endpoint degrades to the fallback coordinate.
func (p *Planner) Build(ctx context.Context, pickupAddress, dropoffAddress string) (*models.Route, error) {
	pickup, err := p.resolve(ctx, pickupAddress)
	if err != nil {
		return nil, err
	}
	dropoff, err := p.resolve(ctx, dropoffAddress)
	if err != nil {
		return nil, err
	}

	distance := geo.Distance(pickup, dropoff)
	return &models.Route{
		Pickup:     pickup,
		Dropoff:    dropoff,
		DistanceKm: distance,
		EtaMinutes: geo.EtaMinutes(distance, p.SpeedKmh),
	}, nil
}

func (p *Planner) resolve(ctx context.Context, address string) (models.Coordinate, error) {
	res, err := p.Geocoder.Geocode(ctx, address)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if res == nil {
		p.Log.Warn("route_fallback", fmt.Sprintf("address %q unresolved, using fallback coordinate", address))
		return p.Fallback, nil
	}
	return res.Coordinate, nil
}
