// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/sakila_analytics/ETL/config"
	"github.com/LilVoxy/sakila_analytics/ETL/extractors"
	"github.com/LilVoxy/sakila_analytics/ETL/load"
	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/schema"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
	"github.com/LilVoxy/sakila_analytics/ETL/validation"
	"github.com/LilVoxy/sakila_analytics/routes"
	"github.com/LilVoxy/sakila_analytics/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	noSchedule := flag.Bool("no-schedule", false, "Serve the monitor API without scheduled incremental runs")
	flag.Parse()

	if err := run(*configPath, !*noSchedule); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string, schedule bool) error {
	etlConfig, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := etlConfig.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewETLLogger(etlConfig.Logging.Verbose, etlConfig.Logging.Development, etlConfig.Logging.Dir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("Starting monitor server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connections, err := config.ConnectDatabases(ctx, etlConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDatabases(connections); err != nil {
			logger.Error("%v", err)
		}
	}()

	// The monitor reads the run log and watermarks, so the tables must exist
	if err := schema.Create(ctx, connections.TargetDB); err != nil {
		return err
	}

	var synchronizer *pipeline.Synchronizer
	wsManager := websocket.NewManager(logger, func() bool { return synchronizer.Running() })
	synchronizer = pipeline.NewSynchronizer(
		extractors.NewMySQLExtractor(connections.SourceDB, logger),
		connections.TargetDB,
		logger,
		pipeline.WithEventSink(wsManager),
	)
	go wsManager.Run(ctx)

	checker := validation.NewChecker(
		validation.NewSourceService(connections.SourceDB),
		validation.NewTargetRepository(connections.TargetDB),
		logger,
		validation.Config{LookbackDays: etlConfig.Sync.ValidationLookbackDays},
	)

	handler := routes.NewHandler(
		models.NewSQLiteETLLogRepository(connections.TargetDB),
		load.NewWatermarkTracker(connections.TargetDB),
		synchronizer,
		checker,
		connections.TargetDB,
		logger,
	)
	router := mux.NewRouter()
	routes.SetupRoutes(router, handler, wsManager)

	if schedule {
		scheduler, err := pipeline.NewScheduler(synchronizer, etlConfig.Sync.RunInterval, logger)
		if err != nil {
			return err
		}
		logger.Info("Scheduling incremental sync every %v", etlConfig.Sync.RunInterval)
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         etlConfig.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Monitor listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("monitor server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, closing connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown: %v", err)
	}

	logger.Info("Monitor server stopped")
	return nil
}
