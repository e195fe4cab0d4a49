// Package main runs the alphadesk backend: market data aggregation, AI
// analysis and the paper trading API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alphadesk/alphadesk/internal/app/runtime"
)

func main() {
	// Best-effort .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	application, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("failed to initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}

	stop()
	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
