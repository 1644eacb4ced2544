/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the family coins server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure structured logging
  3. Open SQLite storage and apply migrations
  4. Wire ledger -> goal engine -> task/store services
  5. Start HTTP server with graceful shutdown

CONFIGURATION:
  Flags override environment variables:
    -port       HTTP server port       (PORT, default 8080)
    -db         SQLite database path   (DATABASE_PATH, default familycoins.db;
                ":memory:" for ephemeral)
    -log-level  debug|info|warn|error  (LOG_LEVEL, default info)

WIRING ORDER:
  The ledger is created first with a no-op listener, the goal engine is
  created over the ledger, then the engine is attached as the ledger's
  balance listener and the task service's approval listener. This breaks
  the construction cycle between the two without globals.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - storage/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ironborrus-star/familycoins/api"
	"github.com/ironborrus-star/familycoins/coins"
	"github.com/ironborrus-star/familycoins/goals"
	"github.com/ironborrus-star/familycoins/shop"
	"github.com/ironborrus-star/familycoins/storage/sqlite"
	"github.com/ironborrus-star/familycoins/tasks"
)

func main() {
	// .env is optional; flags and real env win.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "familycoins.db"), "SQLite database path")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level (debug|info|warn|error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	slog.SetDefault(logger)

	// Storage
	db, err := sqlite.Open(*dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Services
	ledger := coins.NewLedger(db, coins.WithLogger(logger))
	taskSvc := tasks.NewService(db, db, ledger, tasks.WithLogger(logger))
	shopSvc := shop.NewService(db, db, ledger, shop.WithLogger(logger))
	engine := goals.NewEngine(db, db, shopSvc, taskSvc, ledger, goals.WithLogger(logger))

	// Event hooks: coin movements and task approvals drive goal progress.
	ledger.AttachListener(engine)
	taskSvc.AttachListener(engine)

	handler := api.NewHandler(db, ledger, engine, taskSvc, shopSvc)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", *port), "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
