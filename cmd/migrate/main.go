package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/marketplace-orders/internal/config"
	"github.com/example/marketplace-orders/internal/infrastructure/store"
)

// migrate applies pending schema migrations and exits.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	databaseURL, err := config.LoadDatabaseURL(getEnv("ENV_FILE", ".env"))
	if err != nil {
		log.Fatalf("[Migrate] Invalid configuration: %v", err)
	}

	db, err := store.ConnectPostgres(databaseURL)
	if err != nil {
		log.Fatalf("[Migrate] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	log.Printf("[Migrate] %d migrations known", len(store.AllMigrations))
	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("[Migrate] %v", err)
	}
	log.Println("[Migrate] Schema is up to date")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
