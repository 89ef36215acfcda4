/**
 * @description
 * This file contains the Gin handler that upgrades a request to a WebSocket
 * connection on the live quote feed.
 *
 * Key features:
 * - WebSocket Upgrade: Uses the `gorilla/websocket` Upgrader for the handshake.
 * - Hub Registration: Each connection becomes a `websocket.Client` registered with
 *   the quote hub, with its read and write pumps on separate goroutines.
 *
 * @dependencies
 * - github.com/gorilla/websocket: The WebSocket library.
 */
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"

	"github.com/stephanniegb/death-mountain/internal/websocket"
)

// upgrader accepts every origin, matching the API's CORS policy.
var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveWs handles websocket requests from the peer.
func (server *Server) serveWs(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		server.logger.Error("failed to upgrade connection to websocket", "error", err)
		return
	}

	client := websocket.NewClient(server.hub, conn, server.logger)
	if !server.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
