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

	"github.com/bwise1/geofence_reminders/config"
	deps "github.com/bwise1/geofence_reminders/internal/debs"
	api "github.com/bwise1/geofence_reminders/internal/http/rest"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
	shutdownTimeout               = 10 * time.Second
)

func main() {
	cfg := config.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := deps.New(ctx, cfg)

	a := &api.API{
		Config: cfg,
		Deps:   deps,
	}

	go deps.WebSocket.Run(ctx)
	go deps.Controller.Run(ctx)

	go func() {
		if err := deps.Controller.Start(ctx); err != nil {
			log.Printf("controller start failed: %v", err)
		}
	}()

	go func() {
		log.Printf("Server running on port %v ...", cfg.Port)
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	log.Println("Request to shutdown server. Doing nothing for ", allowConnectionsAfterShutdown)
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}

	cancel()
	deps.Close()
	log.Println("Reminder store closed.")
}
