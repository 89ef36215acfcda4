package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stephanniegb/death-mountain/internal/services"
)

// getTicketQuote returns what one dungeon ticket costs in the given payment token.
func (server *Server) getTicketQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	price, err := server.quotes.TicketPrice(c.Request.Context(), symbol)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": price})
	case errors.Is(err, services.ErrTokenNotSupported),
		errors.Is(err, services.ErrNoQuote),
		errors.Is(err, services.ErrNoLiquidity):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		server.logger.Error("error pricing ticket", "error", err, "symbol", symbol)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": services.ErrQuoteFailed.Error()})
	}
}
