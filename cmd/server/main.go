/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cost forecasting engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (file + env) and build the logger
  3. Initialize SQLite store
  4. Build the category classifier (default or mapping file)
  5. Configure HTTP router and start with graceful shutdown

COMMAND-LINE FLAGS:
  -config   YAML configuration file (optional, defaults apply)
  -port     Override the HTTP port from config
  -db       Override the SQLite path from config
            Use ":memory:" for an in-memory database
  -mapping  JSON classification mapping file (optional)
  -log      Override log level (debug, info, warn, error)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cost-engine.db"

  # Run with a custom classification mapping
  ./server -mapping="./mappings/gulf-coast.json"

SEE ALSO:
  - config/config.go: Configuration layout and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gantry/cost-engine/api"
	"github.com/gantry/cost-engine/config"
	"github.com/gantry/cost-engine/engine"
	"github.com/gantry/cost-engine/factory"
	"github.com/gantry/cost-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	mappingPath := flag.String("mapping", "", "JSON classification mapping file")
	logLevel := flag.String("log", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		conf.Server.Port = *port
	}
	if *dbPath != "" {
		conf.Database.Path = *dbPath
	}

	logger, err := config.BuildLogger(conf.Logging, *logLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(conf.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Build the classifier: built-in tables unless a mapping file is given
	var classifier *engine.Classifier
	if *mappingPath != "" {
		raw, err := os.ReadFile(*mappingPath)
		if err != nil {
			logger.Fatal("Failed to read mapping file", zap.Error(err))
		}
		classifier, err = factory.ParseMapping(string(raw))
		if err != nil {
			logger.Fatal("Failed to parse mapping file", zap.Error(err))
		}
		logger.Info("Loaded classification mapping", zap.String("path", *mappingPath))
	}

	handler := api.NewHandler(store, classifier, conf.Params(), logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", conf.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			zap.Int("port", conf.Server.Port),
			zap.String("db", conf.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
