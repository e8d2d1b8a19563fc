package models

import "errors"

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `db:"lat" json:"lat"`
	Lng float64 `db:"lng" json:"lng"`
}

// Validate checks that both components are finite and within range.
// NaN fails the range comparisons, so no separate check is needed.
func (c Coordinate) Validate() error {
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return ErrInvalidLatitude
	}
	if !(c.Lng >= -180 && c.Lng <= 180) {
		return ErrInvalidLongitude
	}
	return nil
}

// GeocodeResult is the outcome of resolving a free-text address.
// It is ephemeral and never persisted.
type GeocodeResult struct {
	Coordinate  Coordinate `json:"coordinate"`
	DisplayName string     `json:"display_name"`
}
