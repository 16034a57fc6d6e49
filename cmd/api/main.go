package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koekemoer93/kart-force-sub000/api/controllers"
	"github.com/koekemoer93/kart-force-sub000/api/routes"
	"github.com/koekemoer93/kart-force-sub000/internal/inventory"
	"github.com/koekemoer93/kart-force-sub000/internal/staff"
	supplyrequest "github.com/koekemoer93/kart-force-sub000/internal/supplyrequests"
	"github.com/koekemoer93/kart-force-sub000/internal/watch"
	"github.com/koekemoer93/kart-force-sub000/pkg/config"
	"github.com/koekemoer93/kart-force-sub000/pkg/db"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
	"github.com/koekemoer93/kart-force-sub000/pkg/metrics"
	"github.com/koekemoer93/kart-force-sub000/pkg/migrate"
	"github.com/koekemoer93/kart-force-sub000/pkg/outbox"
	"github.com/koekemoer93/kart-force-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	supplyMetrics := metrics.NewSupplyMetrics(registry)

	hub, err := watch.NewHub(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create watch hub", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, events, supplyMetrics, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	requestService, err := supplyrequest.NewService(
		supplyrequest.NewRepository(dbClient.DB()),
		inventoryRepo,
		dbClient,
		events,
		supplyMetrics,
		hub,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create supply request service", err)
		os.Exit(1)
	}

	staffService, err := staff.NewService(staff.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			Health: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Metrics:          registry,
			StaffService:     staffService,
			InventoryService: inventoryService,
			RequestService:   requestService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
