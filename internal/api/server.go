/**
 * @description
 * This file sets up the HTTP server for the payment backend using the Gin framework.
 * It is responsible for initializing the router, setting up middleware, and defining routes.
 *
 * Key features:
 * - Gin Router: Utilizes Gin for HTTP routing with the default logger and recovery.
 * - CORS: Any origin may call the API. The session endpoint is public.
 * - Dependency Injection: Services are built by the caller and handed in.
 */

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/services"
	"github.com/stephanniegb/death-mountain/internal/websocket"
)

// SessionCreator issues payment session tokens.
type SessionCreator interface {
	CreateSession(ctx context.Context, req chainrails.SessionRequest) (json.RawMessage, error)
}

// TicketPricer prices one ticket in a payment token.
type TicketPricer interface {
	TicketPrice(ctx context.Context, symbol string) (services.TicketPrice, error)
}

// Server serves HTTP requests for the payment backend.
type Server struct {
	Router      *gin.Engine
	logger      *slog.Logger
	sessions    SessionCreator
	quotes      TicketPricer
	hub         *websocket.Hub
	redisClient *redis.Client
}

/**
 * @description
 * NewServer creates a new HTTP server and sets up all routes.
 *
 * @param sessions The session service behind /create-session.
 * @param quotes The quote service behind /quote/:symbol; nil disables the route.
 * @param hub The live quote hub behind /ws/quotes; nil disables the route. The caller runs it.
 * @param redisClient The Redis client to close on shutdown, or nil.
 * @param logger A structured logger.
 * @returns A pointer to a new Server instance.
 */
func NewServer(sessions SessionCreator, quotes TicketPricer, hub *websocket.Hub, redisClient *redis.Client, logger *slog.Logger) *Server {
	server := &Server{
		logger:      logger,
		sessions:    sessions,
		quotes:      quotes,
		hub:         hub,
		redisClient: redisClient,
	}

	// Initialize the Gin router with default middleware (logger and recovery)
	router := gin.Default()
	router.Use(corsMiddleware())

	// ------------------------------------------------------------------
	// Route Definitions
	// ------------------------------------------------------------------
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Chainrails server is running")
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.GET("/create-session", server.createSession)

	if quotes != nil {
		router.GET("/quote/:symbol", server.getTicketQuote)
	}

	if hub != nil {
		router.GET("/ws/quotes", server.serveWs)
	}

	server.Router = router
	return server
}

// corsMiddleware allows every origin, mirroring a default cors() setup.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, PUT, PATCH, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

/**
 * @description
 * Close closes all connections and resources held by the server.
 * This should be called during graceful shutdown of the application.
 */
func (s *Server) Close() error {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("failed to close redis client", "error", err)
			return err
		}
	}
	return nil
}
