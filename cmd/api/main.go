package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calcapi/internal/config"
	"calcapi/internal/db"
	"calcapi/internal/db/migrations"
	"calcapi/internal/repository"
	"calcapi/internal/routes"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	if cfg.IsProduction() && cfg.AuthSecretIsFallback {
		log.Fatal("AUTH_SECRET must be set in production")
	}

	var store repository.UserStore
	switch cfg.StoreDriver {
	case "file":
		store = repository.NewFileStore(cfg.UsersFile)
		log.Printf("Using file store at %s", cfg.UsersFile)
	case "postgres":
		if err := db.CreateDatabaseIfNotExists(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to ensure database exists: %v", err)
		}
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := migrations.RunMigrations(database.DB); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		store = repository.NewPostgresUserStore(database.DB)
	default:
		log.Fatalf("Unknown STORE_DRIVER %q (want postgres or file)", cfg.StoreDriver)
	}

	router := routes.SetupRoutes(store, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
