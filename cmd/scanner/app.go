// File: cmd/scanner/app.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/internal/config"
	"github.com/smartdevs17/solana-mint-scanner/internal/connection"
	"github.com/smartdevs17/solana-mint-scanner/internal/metrics"
	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/internal/monitor"
	"github.com/smartdevs17/solana-mint-scanner/internal/notification"
	"github.com/smartdevs17/solana-mint-scanner/internal/server"
	"github.com/smartdevs17/solana-mint-scanner/internal/storage"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// Application represents the main application
type Application struct {
	config       *config.Config
	logger       *logrus.Entry
	metrics      *metrics.Manager
	session      *connection.HeliusClient
	storage      storage.Storage
	notification *notification.NotificationManager
	monitor      *monitor.MintMonitor
	server       *server.HTTPServer
}

// NewApplication initializes every component from a validated configuration
func NewApplication(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg}

	// Initialize logger
	if err := app.initializeLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize components
	if err := app.initializeComponents(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return err
	}

	app.logger = utils.ComponentLogger("app")
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Debug("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.metrics = metrics.NewManager()

	// Initialize storage
	store, err := storage.Open(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.storage = store

	// Initialize notification manager
	app.notification, err = notification.NewNotificationManagerFromConfig(&app.config.Notifications)
	if err != nil {
		return fmt.Errorf("failed to initialize notification: %w", err)
	}

	// Initialize scanner and monitor
	app.session = connection.NewHeliusClient(&app.config.Helius)
	scanner := monitor.NewScanner(
		monitor.NewFetcher(app.session, app.config.Scanner.Limit),
		monitor.NewDetector(nil),
		app.config.MonitoredAddresses(),
	)
	scanner.AddSink(storage.NewRecorder(app.storage))
	if app.notification.HasSenders() {
		scanner.AddSink(app.notification)
	}

	app.monitor = monitor.NewMintMonitor(scanner, app.session, &monitor.MonitorConfig{
		Interval: app.config.Scanner.Interval,
	})
	app.monitor.SetMetricsManager(app.metrics)

	// Initialize HTTP server
	if app.config.Server.Enabled {
		app.server = server.NewHTTPServer(&server.ServerConfig{
			Port:          app.config.Server.Port,
			Host:          app.config.Server.Host,
			ReadTimeout:   app.config.Server.ReadTimeout,
			WriteTimeout:  app.config.Server.WriteTimeout,
			EnableMetrics: app.config.Server.EnableMetrics,
			EnableHealth:  app.config.Server.EnableHealth,
			Version:       AppVersion,
		}, app.storage, app.monitor, app.notification, app.metrics)
	}

	app.logger.WithFields(logrus.Fields{
		"addresses": len(app.config.Scanner.Addresses),
		"storage":   app.config.Storage.Type,
		"sinks":     app.notification.GetStats().ActiveSenders,
		"server":    app.config.Server.Enabled,
	}).Info("All components initialized successfully")
	return nil
}

// Run scans until ctx is cancelled, then releases every resource
func (app *Application) Run(ctx context.Context) error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
		"interval":    app.config.Scanner.Interval.String(),
	}).Info("Starting Solana mint scanner")

	defer app.Close()

	if app.server != nil {
		if err := app.server.Start(); err != nil {
			return err
		}
	}

	// Start mint monitor
	if err := app.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mint monitor: %w", err)
	}

	<-ctx.Done()
	app.logger.Info("Shutdown signal received, stopping scanner")

	if err := app.monitor.Stop(); err != nil {
		return fmt.Errorf("failed to stop mint monitor: %w", err)
	}
	return nil
}

// RunOnce performs exactly one scan cycle and releases every resource
func (app *Application) RunOnce(ctx context.Context) *monitor.CycleResult {
	defer app.Close()
	return app.monitor.ScanOnce(ctx)
}

// Close stops components in reverse order of initialization
func (app *Application) Close() {
	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.server.Stop(ctx); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
		cancel()
		app.server = nil
	}

	if app.session != nil {
		if err := app.session.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close connection")
		}
	}

	if app.notification != nil {
		if err := app.notification.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close notification manager")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	if err := utils.CloseLogger(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to close log file:", err)
	}
}

// checkAddresses health checks every address with a limit=1 request and
// writes a reachability line for each. It fails when any address is unreachable.
func checkAddresses(ctx context.Context, session connection.Session, addresses []models.MonitoredAddress, w io.Writer) error {
	failed := 0
	for _, addr := range addresses {
		start := time.Now()
		if err := session.HealthCheck(ctx, addr.Address); err != nil {
			failed++
			fmt.Fprintf(w, "✗ %s (%s): %v\n", addr.Label, addr.Address, err)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s) reachable in %s\n", addr.Label, addr.Address, time.Since(start).Round(time.Millisecond))
	}

	if failed > 0 {
		return utils.NewAppError(utils.ErrCodeConnection, "Connectivity test failed",
			fmt.Sprintf("%d of %d addresses unreachable", failed, len(addresses)))
	}
	return nil
}
