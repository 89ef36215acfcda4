/**
 * @description
 * This is the main entry point for the dungeon payment backend.
 * It mints cross-chain payment sessions and serves live ticket quotes.
 *
 * Key features:
 * - Configuration Loading: Loads environment variables from a .env.local or .env file.
 * - Optional Infrastructure: Postgres backs the session ledger and Redis backs the
 *   quote cache; either can be left unconfigured.
 * - Server Initialization: Sets up the Gin web server with all its routes and middleware,
 *   and starts the live quote hub.
 * - Graceful Shutdown: Handles interrupt signals (like Ctrl+C) to shut down the server gracefully.
 */

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stephanniegb/death-mountain/internal/api"
	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/config"
	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/network"
	"github.com/stephanniegb/death-mountain/internal/services"
	"github.com/stephanniegb/death-mountain/internal/store"
	"github.com/stephanniegb/death-mountain/internal/websocket"
)

func main() {
	// Initialize a structured logger for better log management.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ------------------------------------------------------------------
	// Configuration Loading
	// ------------------------------------------------------------------
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("cannot load config", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded successfully", "network", cfg.Network)

	chain, err := network.Lookup(cfg.Network)
	if err != nil {
		logger.Error("unsupported network", "network", cfg.Network, "error", err)
		os.Exit(1)
	}

	// ------------------------------------------------------------------
	// Database Connection
	// ------------------------------------------------------------------
	var ledger store.Ledger
	if cfg.DatabaseURL != "" {
		connPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("cannot connect to the database", "error", err)
			os.Exit(1)
		}
		defer connPool.Close()

		if err := connPool.Ping(context.Background()); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}

		queries := store.New(connPool)
		if err := queries.EnsureSchema(context.Background()); err != nil {
			logger.Error("cannot create session ledger schema", "error", err)
			os.Exit(1)
		}
		ledger = queries
		logger.Info("database connection established")
	} else {
		logger.Warn("DATABASE_URL not set, payment sessions will not be recorded")
	}

	// ------------------------------------------------------------------
	// Redis Connection
	// ------------------------------------------------------------------
	var redisClient *redis.Client
	var cache services.QuoteCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis ping failed, quotes will not be cached", "error", err)
		} else {
			cache = services.NewRedisQuoteCache(redisClient)
			logger.Info("redis connection established")
		}
	}

	// ------------------------------------------------------------------
	// Server Initialization
	// ------------------------------------------------------------------
	chainrailsClient := chainrails.NewClient(cfg.ChainrailsAPIURL, cfg.ChainrailsAPIKey, logger)
	sessionService := services.NewSessionService(chainrailsClient, ledger, logger)

	ekuboClient := ekubo.NewClient(cfg.EkuboAPIURL, logger)
	quoteService := services.NewQuoteService(ekuboClient, cache, cfg.QuoteCacheTTL, chain, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(hubCtx, quoteService, cfg.QuoteFeedInterval, logger)
	go hub.Run()

	server := api.NewServer(sessionService, quoteService, hub, redisClient, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}

	// ------------------------------------------------------------------
	// Start Server & Handle Graceful Shutdown
	// ------------------------------------------------------------------
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting server", "address", httpServer.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdownChannel:
		logger.Info("shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stopHub()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}

		if err := server.Close(); err != nil {
			logger.Error("failed to close server resources", "error", err)
		}

		logger.Info("server shutdown complete")
	}

	logger.Info("application has shut down")
}
