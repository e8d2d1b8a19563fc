package models

// Route is a delivery leg between two resolved endpoints with derived
// great-circle distance and ETA.
type Route struct {
	Pickup     Coordinate `json:"pickup"`
	Dropoff    Coordinate `json:"dropoff"`
	DistanceKm float64    `json:"distance_km"`
	EtaMinutes int        `json:"eta_minutes"`
}
