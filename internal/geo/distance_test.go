package geo

import (
	"math"
	"testing"

	"droneDeliveryTracker/models"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	d := HaversineKm(10, 20, 10, 20)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_NonNegativeAndSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{10.77, 106.70, 10.8231, 106.6297},
		{0, 0, 0, 1},
		{-45, 170, 45, -170},
		{89, 0, -89, 0},
	}
	for _, p := range pairs {
		ab := HaversineKm(p[0], p[1], p[2], p[3])
		ba := HaversineKm(p[2], p[3], p[0], p[1])
		if ab < 0 {
			t.Fatalf("negative distance for %v: %v", p, ab)
		}
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance for %v: %v vs %v", p, ab, ba)
		}
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// District 1 to Tan Binh in Ho Chi Minh City is roughly 9-10 km.
	d := HaversineKm(10.77, 106.70, 10.8231, 106.6297)
	if d < 8 || d > 11 {
		t.Fatalf("expected ~9-10 km, got %v", d)
	}
}

func TestInterpolate(t *testing.T) {
	cur := models.Coordinate{Lat: 10, Lng: 100}
	target := models.Coordinate{Lat: 11, Lng: 102}

	half := Interpolate(cur, target, 0.5)
	if half.Lat != 10.5 || half.Lng != 101 {
		t.Fatalf("halfway mismatch: %+v", half)
	}
	if got := Interpolate(cur, target, 0); got != cur {
		t.Fatalf("zero fraction should not move: %+v", got)
	}
	if got := Interpolate(cur, target, 1); got != target {
		t.Fatalf("full fraction should reach target: %+v", got)
	}
}

func TestEtaMinutes(t *testing.T) {
	tests := []struct {
		distanceKm float64
		speedKmh   float64
		want       int
	}{
		{15, 30, 30},
		{5, 30, 10},
		{5.1, 30, 11}, // rounds up
		{0, 30, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := EtaMinutes(tt.distanceKm, tt.speedKmh); got != tt.want {
			t.Fatalf("EtaMinutes(%v, %v) = %d, want %d", tt.distanceKm, tt.speedKmh, got, tt.want)
		}
	}
}
