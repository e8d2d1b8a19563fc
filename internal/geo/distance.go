package geo

import (
	"math"

	"droneDeliveryTracker/models"
)

const (
	// EarthRadiusKm is Earth's radius in kilometers for the Haversine calculation.
	EarthRadiusKm = 6371.0
	// ArrivalThresholdKm is the remaining distance (50 meters) below which a
	// delivery counts as arrived.
	ArrivalThresholdKm = 0.05
	// AssumedSpeedKmh is the fixed cruising speed used for ETA estimates.
	// Intentionally decoupled from any drone's rated max speed.
	AssumedSpeedKmh = 30.0
)

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometers using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is HaversineKm over coordinates.
func Distance(from, to models.Coordinate) float64 {
	return HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
}

// Interpolate moves fraction of the way from cur toward target, linearly in
// lat/lng space. Straight-line flight is the realistic model for a drone, so
// no road-network snapping is attempted.
func Interpolate(cur, target models.Coordinate, fraction float64) models.Coordinate {
	return models.Coordinate{
		Lat: cur.Lat + (target.Lat-cur.Lat)*fraction,
		Lng: cur.Lng + (target.Lng-cur.Lng)*fraction,
	}
}

// EtaMinutes returns the estimated travel time in whole minutes, rounded up.
func EtaMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 || distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm / speedKmh * 60))
}
