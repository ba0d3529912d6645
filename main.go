package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoppy-backend/products-api/internal/app/service"
	"github.com/shoppy-backend/products-api/internal/domain"
	"github.com/shoppy-backend/products-api/internal/infrastructure/config"
	"github.com/shoppy-backend/products-api/internal/infrastructure/http"
	"github.com/shoppy-backend/products-api/internal/infrastructure/http/handler"
	"github.com/shoppy-backend/products-api/internal/infrastructure/repository/memory"
	"github.com/shoppy-backend/products-api/internal/infrastructure/repository/postgres"
	"github.com/shoppy-backend/products-api/internal/infrastructure/storage/s3store"
	"github.com/shoppy-backend/products-api/internal/infrastructure/telemetry"
	"github.com/shoppy-backend/products-api/internal/infrastructure/ws"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize OpenTelemetry
	telem, err := telemetry.NewTelemetry(&cfg.OTLP)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer("products-api")
	meter := telem.MeterProvider.Meter("products-api")
	logger := telem.Logger

	logger.Info("Starting Products API")

	// Record store: Postgres, or in-memory when DSN is set to "memory"
	// (local development without a database).
	var repo domain.ProductRepository
	if cfg.Database.DSN == "memory" {
		logger.Warn("Using in-memory product repository, data will not persist")
		repo = memory.NewProductRepository(tracer, logger)
	} else {
		db, err := postgres.Open(cfg.Database.DSN)
		if err != nil {
			logger.Error("Failed to open database", "error", err.Error())
			os.Exit(1)
		}
		repo = postgres.NewProductRepository(db, tracer, logger)
	}

	// Blob store for product images
	images, err := s3store.NewImageStore(ctx, cfg.S3, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize image store", "error", err.Error())
		os.Exit(1)
	}

	// Change-notification hub
	hub := ws.NewHub(meter, logger)
	go hub.Run(ctx)

	// Initialize service
	catalog := service.NewProductCatalogService(repo, images, hub, tracer, meter, logger)

	// Initialize handler
	productHandler := handler.NewProductHandler(catalog, logger)

	// Initialize HTTP server
	server := http.NewServer(&cfg.Server, productHandler, hub, logger, telem)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server error", "error", err.Error())
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	logger.Info("Server stopped")
}
