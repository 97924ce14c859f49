package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/platform/config"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/platform/httpserver"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/platform/logger"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/simulator"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
)

// main runs the development tag-service simulator. The mobile app and the
// sync layer point at it when no real backend is around.
func main() {
	cfg := config.SimulatorFromEnv()
	log := logger.New()

	sim := simulator.New(cfg.JWTSigningKey)
	sim.Seed(
		simulator.Record{
			Code:    "CARCARD-0001",
			Domain:  models.DomainVehicle,
			Config:  map[string]any{"plateNumber": "MH12AB1234"},
			Privacy: models.PrivacySettings{MaskedCall: true},
		},
		simulator.Record{
			Code:   "PETBAND-0001",
			Domain: models.DomainPet,
			Config: map[string]any{"petName": "Bruno"},
			Shape:  simulator.ShapeLegacyDetails,
		},
	)

	srv := httpserver.New(cfg.Addr, sim.Router())

	log.Printf("starting tag simulator on %s", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
