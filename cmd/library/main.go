package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"library_service/pkg/config"
	"library_service/pkg/database"
	"library_service/pkg/loans"
	"library_service/pkg/password"
	"library_service/pkg/scheduler"
)

const seedPassword = "reader123"

func main() {
	log.Println("Starting library service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.HTTP.GinMode)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer database.Close(db)

	if cfg.Database.Seed {
		hash, err := password.Hash(seedPassword, cfg.Security.BcryptCost)
		if err != nil {
			log.Fatalf("Failed to hash seed password: %v", err)
		}
		if err := database.Seed(db, hash); err != nil {
			log.Fatalf("Failed to seed test data: %v", err)
		}
	}

	engine := loans.NewEngine()
	srv := newServer(db, engine, cfg.Security.BcryptCost)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OverdueScan.Enabled {
		scanner := scheduler.NewOverdueScanner(db, engine, cfg.OverdueScan)
		if err := scanner.Start(ctx); err != nil {
			log.Fatalf("Failed to start overdue scanner: %v", err)
		}
		defer scanner.Stop()
	} else {
		log.Println("Overdue scanner: disabled")
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: srv.router(),
	}

	go func() {
		log.Printf("Library service starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down library service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Library service stopped")
}
