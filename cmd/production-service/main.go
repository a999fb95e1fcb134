package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bartarleather/erp-backend/internal/production/events"
	"github.com/bartarleather/erp-backend/internal/production/handler"
	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/service"
	"github.com/bartarleather/erp-backend/pkg/config"
	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/i18n"
	"github.com/bartarleather/erp-backend/pkg/logger"
	"github.com/bartarleather/erp-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("production-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("production-service", cfg.Server.Environment)
	log.Info().Msg("starting Production Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ when a broker is configured. The publisher is
	// nil-safe, so the engine runs without one.
	var rmq *messaging.RabbitMQ
	var publisher *events.ProductionEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewProductionEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	shelfRepo := repository.NewShelfRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	stageRepo := repository.NewStageTaskRepository(db)
	transferRepo := repository.NewTransferRepository(db)

	// Initialize services
	confirmer := service.RequestConfirmer{Default: !cfg.Production.ConfirmConversions}
	normalizer := service.NewNormalizer(productRepo, confirmer, log)
	ledger := service.NewLedger(inventoryRepo, productRepo, shelfRepo, normalizer, log)
	engine := service.NewMoveEngine(ledger, transferRepo, publisher, log)
	handovers := service.NewHandoverService(stageRepo, publisher, log)
	wizard := service.NewWizard(groupRepo, orderRepo, stageRepo, productRepo, inventoryRepo, engine, handovers, publisher, cfg.Production, log)

	// Initialize handlers
	catalogHandler := handler.NewCatalogHandler(productRepo, shelfRepo, orderRepo, log)
	inventoryHandler := handler.NewInventoryHandler(inventoryRepo, ledger, log)
	groupHandler := handler.NewGroupHandler(wizard, log)
	handoverHandler := handler.NewHandoverHandler(handovers, log)
	transferHandler := handler.NewTransferHandler(transferRepo, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Actor)
	r.Use(i18n.Middleware)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID", "X-Actor"},
		AllowCredentials: true,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "production-service",
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	r.Route("/api/v1/production", func(r chi.Router) {
		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Post("/", catalogHandler.CreateProduct)
			r.Get("/{id}", catalogHandler.GetProduct)
		})
		r.Post("/shelves", catalogHandler.CreateShelf)
		r.Get("/warehouses/{warehouseID}/shelves", catalogHandler.ListShelves)

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", catalogHandler.CreateOrder)
			r.Get("/{id}", catalogHandler.GetOrder)
			r.Post("/{orderID}/stages/{stageID}/advance", groupHandler.AdvanceStage)
			r.Post("/{orderID}/stages/{stageID}/complete", groupHandler.CompleteStage)
		})

		// Group order wizard routes
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groupHandler.Create)
			r.Put("/{id}/materials/{orderID}", groupHandler.SaveMaterials)
			r.Put("/{id}/lines", groupHandler.SaveLines)
			r.Get("/{id}/start", groupHandler.PrepareStart)
			r.Post("/{id}/start", groupHandler.Start)
			r.Get("/{id}/progress", groupHandler.Progress)
		})

		// Inventory routes
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/products/{productID}", inventoryHandler.ListByProduct)
			r.Get("/shelves/{shelfID}", inventoryHandler.ListByShelf)
			r.Post("/deltas", inventoryHandler.ApplyDeltas)
		})

		// Handover routes
		r.Route("/stage-tasks/{id}/handovers", func(r chi.Router) {
			r.Get("/", handoverHandler.List)
			r.Post("/{formID}/confirm", handoverHandler.Confirm)
		})

		// Transfer log routes
		r.Get("/transfers", transferHandler.ListRecent)
		r.Get("/transfers/products/{productID}", transferHandler.ListByProduct)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
