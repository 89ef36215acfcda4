/**
 * @description
 * This file contains the HTTP handler that mints Chainrails payment sessions.
 * The API key stays on the server; clients only ever see the session object.
 *
 * @notes
 * - Processor errors are logged in full but never echoed to the caller.
 */

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/services"
)

func (server *Server) createSession(c *gin.Context) {
	req := chainrails.SessionRequest{
		Recipient:        c.Query("recipient"),
		DestinationChain: c.Query("destinationChain"),
		Token:            c.Query("token"),
	}

	session, err := server.sessions.CreateSession(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrMissingParameters) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
			return
		}
		server.logger.Error("error creating session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", session)
}
