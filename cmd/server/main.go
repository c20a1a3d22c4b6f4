// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "tunnins-service/docs"
	"tunnins-service/internal/config"
	"tunnins-service/internal/database"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/handler"
	"tunnins-service/internal/osc"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/routes"
	"tunnins-service/internal/service"
	"tunnins-service/internal/utils"
)

const instanceID = "tunnins"

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB // nil when the command log is kept in memory

	commandRepo repository.CommandRepository
	driver      *tunnins.Driver

	controlService *service.ControlService

	eventBus         *handler.EventBus
	websocketHandler *handler.WebSocketHandler
	oscBridge        *osc.Bridge

	stopBackground chan struct{}
}

// @title TunninS Control Service API
// @version 1.0.0
// @description Drives a TunninS show controller over TCP or serial with ASCII commands

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /
func main() {
	app, err := NewApplication(os.Getenv("TUNNINS_CONFIG_FILE"))
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "tunnins-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.Device)

	app := &Application{
		config:         cfg,
		logger:         logger,
		stopBackground: make(chan struct{}),
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()
	app.initializeDriver()
	app.initializeServices()

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDatabase sets up the database connection and runs migrations
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, command log kept in memory",
			zap.Int("max_entries", app.config.History.MaxEntries),
		)
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		app.logger.Warn("Failed to read migration version", zap.Error(err))
	} else {
		app.logger.Info("Database initialized successfully",
			zap.Uint("schema_version", version),
			zap.Bool("dirty", dirty),
		)
	}

	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database != nil {
		app.commandRepo = repository.NewCommandRepository(app.database, app.logger)
	} else {
		app.commandRepo = repository.NewMemoryCommandRepository(app.config.History.MaxEntries)
	}
}

// initializeDriver creates the device instance
func (app *Application) initializeDriver() {
	app.driver = tunnins.NewDriver(instanceID, app.config.Device, app.logger)
}

// initializeServices creates service instances and wires events
func (app *Application) initializeServices() {
	app.controlService = service.NewControlService(
		app.driver,
		app.commandRepo,
		app.config,
		app.logger,
	)

	app.eventBus = handler.NewEventBus(app.logger)
	events := handler.NewDeviceEventHandler(app.eventBus, app.logger)
	app.driver.SetEventHandler(events)
	app.controlService.SetCommandListener(events)

	app.websocketHandler = handler.NewWebSocketHandler(
		app.controlService,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	if app.config.OSC.Enabled {
		app.oscBridge = osc.NewBridge(&app.config.OSC, app.controlService, app.logger)
	}

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.controlService,
		app.websocketHandler,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// startBackgroundServices starts the event pipeline, the device connection and cleanup
func (app *Application) startBackgroundServices() error {
	go app.eventBus.Start()
	app.websocketHandler.Start()

	if err := app.driver.Init(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if app.oscBridge != nil {
		if err := app.oscBridge.Start(); err != nil {
			return fmt.Errorf("failed to start OSC bridge: %w", err)
		}
	}

	go app.startCleanupService()

	app.logger.Info("Background services started")
	return nil
}

// startCleanupService removes command records past the retention window
func (app *Application) startCleanupService() {
	interval := app.config.History.CleanupInterval
	if interval <= 0 || app.config.History.Retention <= 0 {
		app.logger.Info("Command log cleanup disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("interval", interval),
		zap.Duration("retention", app.config.History.Retention),
	)

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := app.controlService.CleanupCommands(ctx, app.config.History.Retention); err != nil {
				app.logger.Error("Failed to cleanup old commands", zap.Error(err))
			}
			cancel()
		case <-app.stopBackground:
			return
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "tunnins-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	close(app.stopBackground)

	if app.oscBridge != nil {
		if err := app.oscBridge.Stop(); err != nil {
			app.logger.Error("OSC bridge shutdown error", zap.Error(err))
		}
	}

	app.websocketHandler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.driver.Destroy(); err != nil {
		app.logger.Error("Device shutdown error", zap.Error(err))
	}

	app.eventBus.Stop()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP, starts background services and blocks until shutdown
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	if err := app.startBackgroundServices(); err != nil {
		return err
	}

	app.waitForShutdown()

	return nil
}
