package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foundline/crucible/internal/api"
	"github.com/foundline/crucible/internal/approval"
	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/config"
	"github.com/foundline/crucible/internal/orchestrator"
	"github.com/foundline/crucible/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Orchestrator (optional)
	var orchClient orchestrator.Client
	if cfg.Orchestrator.URL != "" {
		oc, err := orchestrator.NewNATSClient(ctx, cfg.Orchestrator.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to orchestrator, running without notifications", "error", err)
		} else {
			orchClient = oc
			defer oc.Close()
			logger.Info("connected to orchestrator")
		}
	}

	// Boundary validator
	parser := boundary.NewParser(boundary.Options{
		Mode:            boundary.Mode(cfg.Boundary.Mode),
		Strict:          cfg.Boundary.Strict,
		MaxLoggedIssues: cfg.Boundary.MaxLoggedIssues,
		SampleRate:      cfg.Boundary.SampleRate,
	}, logger)

	// Approval coordinator
	coordinator := approval.NewCoordinator(db, orchClient, cfg.NotifyTimeout(), logger)

	// API server
	router := api.NewRouter(db, orchClient, parser, coordinator, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
