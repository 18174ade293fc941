/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shirt ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, YAML, .env, LEDGER_* env, flags)
  3. Build the zap logger
  4. Open the store (SQLite file or in-memory)
  5. Create ledger, API handler and router
  6. Start server with graceful shutdown

Any failure before the server is listening is fatal.

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path, or "memory" (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/ledger.db"
  ./server -db=memory -port=3000
  LEDGER_LOG_MODE=production ./server -config=ledger.yaml

SEE ALSO:
  - config/config.go: Configuration layers
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/shirt-ledger/api"
	"github.com/warp/shirt-ledger/config"
	"github.com/warp/shirt-ledger/ledger"
	"github.com/warp/shirt-ledger/ledger/store"
	"github.com/warp/shirt-ledger/logging"
	"github.com/warp/shirt-ledger/store/sqlite"
	"go.uber.org/zap"
)

// ledgerStore is what main needs from either store implementation.
type ledgerStore interface {
	ledger.TxStore
	api.Resetter
	api.Pinger
	Close() error
}

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", `SQLite database path, or "memory" (overrides config)`)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(cfg, *port, *dbPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Initialize store
	st, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("type", cfg.Database.Type), zap.Error(err))
	}
	defer st.Close()

	l := ledger.New(st, ledger.WithLogger(logger.Named("ledger")))
	handler := api.NewHandler(l, st, logger.Named("api"))
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.Database.Type),
			zap.String("path", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// applyFlags lets explicitly set flags win over every other layer.
func applyFlags(cfg *config.Config, port int, dbPath string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	switch dbPath {
	case "":
	case config.DatabaseMemory:
		cfg.Database.Type = config.DatabaseMemory
	default:
		cfg.Database.Type = config.DatabaseSQLite
		cfg.Database.Path = dbPath
	}
}

func openStore(db config.Database) (ledgerStore, error) {
	if db.Type == config.DatabaseMemory {
		return store.NewMemory(), nil
	}
	s, err := sqlite.New(db.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
