package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vendops/vendops/internal/app"
	"github.com/vendops/vendops/internal/importer"
	"github.com/vendops/vendops/internal/inventory"
	"github.com/vendops/vendops/internal/locations"
	"github.com/vendops/vendops/internal/machines"
	"github.com/vendops/vendops/internal/observability"
	"github.com/vendops/vendops/internal/platform/cache"
	"github.com/vendops/vendops/internal/platform/db"
	"github.com/vendops/vendops/internal/pricing"
	"github.com/vendops/vendops/internal/prospects"
	"github.com/vendops/vendops/internal/recon"
	"github.com/vendops/vendops/internal/reports"
	"github.com/vendops/vendops/internal/tickets"
	"github.com/vendops/vendops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	prospectService := prospects.NewService(prospects.NewRepository(pool))
	locationService := locations.NewService(locations.NewRepository(pool))
	machineService := machines.NewService(machines.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	ticketService := tickets.NewService(tickets.NewRepository(pool))
	pricingService := pricing.NewService(pricing.NewRepository(pool))

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	reportService := reports.NewService(reports.ServiceParams{
		Logger:    logger,
		Fetcher:   reports.NewFetcher(pool, cfg.FetchMaxRows),
		Cache:     reportCache,
		Machines:  machineService,
		Inventory: inventoryService,
		Metrics:   metrics,
	})
	inventoryService.SetReportInvalidator(reportService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	reconService := recon.NewService(logger, recon.NewRepository(pool), reportService, jobClient)
	importService := importer.NewService(logger, importer.NewRepository(pool), reportService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,

		ProspectHandler:  prospects.NewHandler(logger, prospectService),
		LocationHandler:  locations.NewHandler(logger, locationService),
		MachineHandler:   machines.NewHandler(logger, machineService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		TicketHandler:    tickets.NewHandler(logger, ticketService),
		PricingHandler:   pricing.NewHandler(logger, pricingService),
		ReconHandler:     recon.NewHandler(logger, reconService),
		ReportHandler:    reports.NewHandler(logger, reportService),
		ImportHandler:    importer.NewHandler(logger, importService),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
