package repository

import (
	"context"
	"testing"

	"droneDeliveryTracker/internal/db"
	"droneDeliveryTracker/models"
)

func TestDroneRepository_CRUD_Claim_Release(t *testing.T) {
	d, err := db.Open("file:dronerepo?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	drones := NewDroneRepository(d)
	ctx := context.Background()

	dr, err := drones.Create(ctx, &models.Drone{Name: "alpha", Model: "X-100", BatteryPercent: 80, MaxSpeedKmh: 60, PayloadLimitKg: 5})
	if err != nil {
		t.Fatalf("create drone: %v", err)
	}
	if dr.ID == 0 {
		t.Fatalf("expected id assigned")
	}
	if dr.Status != models.DroneStatusIdle {
		t.Fatalf("status should default to idle, got %s", dr.Status)
	}

	if got, _ := drones.GetByName(ctx, "alpha"); got == nil || got.ID != dr.ID {
		t.Fatalf("GetByName mismatch: %+v", got)
	}

	// Claim flips idle -> delivering exactly once.
	ok, err := drones.Claim(ctx, dr.ID)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if ok, _ := drones.Claim(ctx, dr.ID); ok {
		t.Fatalf("second claim must fail: drone already delivering")
	}
	dr2, _ := drones.GetByID(ctx, dr.ID)
	if dr2.Status != models.DroneStatusDelivering {
		t.Fatalf("status not updated: %+v", dr2)
	}

	// Release returns the drone to the pool at the new position.
	if err := drones.Release(ctx, dr.ID, 10.5, 106.5); err != nil {
		t.Fatalf("release: %v", err)
	}
	dr3, _ := drones.GetByID(ctx, dr.ID)
	if dr3.Status != models.DroneStatusIdle || dr3.Lat != 10.5 || dr3.Lng != 106.5 {
		t.Fatalf("release mismatch: %+v", dr3)
	}

	// Manual maintenance toggle.
	if err := drones.UpdateStatus(ctx, dr.ID, models.DroneStatusMaintenance); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if ok, _ := drones.Claim(ctx, dr.ID); ok {
		t.Fatalf("drone in maintenance must not be claimable")
	}

	// List filtered by status.
	st := models.DroneStatusMaintenance
	list, err := drones.List(ctx, ListDronesParams{Status: &st, PageSize: 10})
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v len=%d", err, len(list))
	}

	if err := drones.Delete(ctx, dr.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone, _ := drones.GetByID(ctx, dr.ID); gone != nil {
		t.Fatalf("expected drone deleted, got: %+v", gone)
	}
}

func TestDroneRepository_EligibilityThreshold(t *testing.T) {
	d, err := db.Open("file:droneelig?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	drones := NewDroneRepository(d)
	ctx := context.Background()

	// Battery threshold is an exclusive lower bound: 20 itself is excluded.
	seed := []struct {
		name    string
		battery int
		status  models.DroneStatus
	}{
		{"low", 10, models.DroneStatusIdle},
		{"boundary", 20, models.DroneStatusIdle},
		{"ok", 25, models.DroneStatusIdle},
		{"busy", 90, models.DroneStatusDelivering},
		{"charging", 95, models.DroneStatusCharging},
	}
	for _, s := range seed {
		if _, err := drones.Create(ctx, &models.Drone{Name: s.name, BatteryPercent: s.battery, Status: s.status}); err != nil {
			t.Fatalf("create %s: %v", s.name, err)
		}
	}

	eligible, err := drones.ListEligible(ctx)
	if err != nil {
		t.Fatalf("list eligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].Name != "ok" {
		t.Fatalf("expected only the 25%% drone, got %+v", eligible)
	}

	// Claim respects the same threshold.
	low, _ := drones.GetByName(ctx, "low")
	if ok, _ := drones.Claim(ctx, low.ID); ok {
		t.Fatalf("low-battery drone must not be claimable")
	}
}
