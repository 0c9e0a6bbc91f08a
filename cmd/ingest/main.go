// File: cmd/ingest/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/iot-leituras-api/internal/config"
	"github.com/smartdevs17/iot-leituras-api/internal/metrics"
	"github.com/smartdevs17/iot-leituras-api/internal/monitor"
	"github.com/smartdevs17/iot-leituras-api/internal/processor"
	"github.com/smartdevs17/iot-leituras-api/internal/server"
	"github.com/smartdevs17/iot-leituras-api/internal/storage"
	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config    *config.Config
	logger    *logrus.Logger
	metrics   *metrics.Manager
	storage   storage.Storage
	processor *processor.ReadingProcessor
	monitor   *monitor.EventMonitor
	server    *server.HTTPServer
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	// retrySleep is swapped in tests to skip the startup back-off
	retrySleep func(time.Duration)
}

// NewApplication creates a new application instance. It fails when the store
// cannot be reached within the configured retries.
func NewApplication(cfg *config.Config) (*Application, error) {
	return newApplication(cfg, time.Sleep)
}

func newApplication(cfg *config.Config, sleep func(time.Duration)) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
		retrySleep: sleep,
	}

	// Initialize logger
	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize components
	if err := app.initializeComponents(); err != nil {
		app.Stop()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.initializeMetrics()

	// Initialize storage
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize reading processor
	app.processor = processor.NewReadingProcessor(app.storage, nil)

	// Initialize MQTT monitor
	if app.config.MQTT.Enabled {
		app.initializeMonitor()
	}

	// Initialize HTTP server
	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeMetrics sets up a private registry with the Go runtime collectors
func (app *Application) initializeMetrics() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewManagerWithRegistry(reg, reg)
}

// initializeStorage creates the store and connects it with bounded retries
func (app *Application) initializeStorage() error {
	app.logger.WithField("type", app.config.Storage.Type).Info("Initializing storage layer")

	store, err := storage.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	wrapped := storage.NewStorageWithMetrics(store, app.metrics)

	policy := storage.RetryPolicy{
		Retries: app.config.Storage.RetryAttempts,
		Delay:   app.config.Storage.RetryDelay,
		Sleep:   app.retrySleep,
	}
	if err := storage.Initialize(app.ctx, wrapped, policy); err != nil {
		return err
	}

	app.storage = wrapped
	app.logger.Info("Storage layer initialized successfully")
	return nil
}

// initializeMonitor initializes the MQTT reading monitor
func (app *Application) initializeMonitor() {
	app.logger.Info("Initializing MQTT reading monitor")

	mqttCfg := app.config.MQTT
	monitorCfg := &monitor.MonitorConfig{
		Broker:         mqttCfg.Broker,
		ClientID:       mqttCfg.ClientID,
		Topic:          mqttCfg.Topic,
		QoS:            byte(mqttCfg.QoS),
		Username:       mqttCfg.Username,
		Password:       mqttCfg.Password,
		ConnectTimeout: mqttCfg.ConnectTimeout,
		IngestTimeout:  app.config.Storage.ConnectTimeout,
	}

	app.monitor = monitor.NewEventMonitor(app.processor, app.storage, monitorCfg, app.metrics)
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	serverCfg := &server.ServerConfig{
		Port:            app.config.Server.Port,
		Host:            app.config.Server.Host,
		ReadTimeout:     app.config.Server.ReadTimeout,
		WriteTimeout:    app.config.Server.WriteTimeout,
		ShutdownTimeout: app.config.Server.ShutdownTimeout,
		MaxBodyBytes:    app.config.Server.MaxBodyBytes,
		ListLimit:       app.config.Storage.ListLimit,
		EnableMetrics:   app.config.Server.EnableMetrics,
		EnableHealth:    app.config.Server.EnableHealth,
	}

	var err error
	app.server, err = server.NewHTTPServer(serverCfg, app.storage, app.processor, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	app.logger.Info("HTTP server initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting IoT readings API")

	// Start HTTP server
	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// Start MQTT monitor
	if app.monitor != nil {
		if err := app.monitor.Start(app.ctx); err != nil {
			return fmt.Errorf("failed to start MQTT monitor: %w", err)
		}
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": app.config.Server.Address(),
		"storage":        app.config.Storage.Type,
		"mqtt_enabled":   app.monitor != nil,
	}).Info("IoT readings API started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping IoT readings API")

	// Cancel context to stop all components
	app.cancel()

	// Stop components in reverse order
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.monitor != nil {
		if err := app.monitor.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop MQTT monitor")
		}
	}

	if app.storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.storage.Close(ctx); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	app.logger.Info("IoT readings API stopped successfully")
	return nil
}

// GetStats returns application statistics
func (app *Application) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"version":   AppVersion,
		"uptime":    time.Since(app.startTime).String(),
		"timestamp": time.Now(),
	}

	if app.processor != nil {
		stats["processor"] = app.processor.GetStats()
	}

	if app.monitor != nil {
		stats["monitor"] = app.monitor.GetStats()
	}

	return stats
}

// GetHealth returns application health status
func (app *Application) GetHealth() map[string]interface{} {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   AppVersion,
	}

	components := make(map[string]bool)

	if app.storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		components["storage"] = storage.CheckHealth(ctx, app.storage, app.config.Storage.Type).Healthy
		cancel()
	}

	if app.monitor != nil {
		components["mqtt"] = app.monitor.GetHealth().Healthy
	}

	health["components"] = components

	for _, healthy := range components {
		if !healthy {
			health["status"] = "unhealthy"
			break
		}
	}

	return health
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "iot-leituras-api",
	Short:   "IoT sensor reading ingestion API",
	Long:    `Accepts presence/access readings from RFID devices over HTTP (and optionally MQTT), stores them and keeps an audit log of every call.`,
	Version: AppVersion,
	RunE:    runServer,
}

// loadConfig loads and validates the configuration named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runServer is the main command to run the API
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Create application. This blocks until the store answers or the
	// retries run out.
	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	// Start application
	if err := app.Start(); err != nil {
		app.Stop()
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	<-signalChan
	app.logger.Info("Received shutdown signal, stopping application")

	return app.Stop()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("IoT readings API %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file and environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Storage: %s (database %s)\n", cfg.Storage.Type, cfg.Storage.Database)
		fmt.Printf("Listen address: %s\n", cfg.Server.Address())
		fmt.Printf("MQTT enabled: %t\n", cfg.MQTT.Enabled)

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test storage connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Testing storage connection (%s)...\n", cfg.Storage.Type)
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close(ctx)

		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping storage: %w", err)
		}
		fmt.Println("✓ Storage connection successful")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	// Add persistent flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
