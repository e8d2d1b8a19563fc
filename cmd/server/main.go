package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"droneDeliveryTracker/internal/assign"
	"droneDeliveryTracker/internal/config"
	"droneDeliveryTracker/internal/db"
	"droneDeliveryTracker/internal/events"
	"droneDeliveryTracker/internal/geocode"
	"droneDeliveryTracker/internal/httpapi"
	"droneDeliveryTracker/internal/logger"
	"droneDeliveryTracker/internal/route"
	"droneDeliveryTracker/internal/sim"
	"droneDeliveryTracker/repository"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	appLog := logger.New("drone-delivery-tracker")

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	users := repository.NewUserRepository(d)
	orders := repository.NewOrderRepository(d)
	drones := repository.NewDroneRepository(d)
	assignments := repository.NewAssignmentRepository(d)
	progress := repository.NewProgressRepository(d)

	// Domain services
	geocoder := geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.CountryCode, appLog)
	planner := route.NewPlanner(geocoder, appLog)
	tracker := sim.NewTracker(progress, sim.Options{
		TickInterval:       cfg.Sim.TickInterval,
		StepFraction:       cfg.Sim.StepFraction,
		ArrivalThresholdKm: cfg.Sim.ArrivalThresholdKm,
	}, appLog)
	bus := events.NewBus()
	resolver := assign.NewResolver(orders, drones, assignments, progress, planner, tracker, bus, appLog)

	api := httpapi.New(cfg.Auth.JWTSecret, users, orders, drones, assignments, progress,
		resolver, tracker, bus, appLog)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: api.Router(),
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	tracker.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
