/**
 * @description
 * This file defines the `Client` struct, which represents a single WebSocket
 * connection to the quote feed. It reads subscription requests and writes price
 * updates.
 *
 * Key features:
 * - Connection Management: Wraps a `gorilla/websocket` connection.
 * - Concurrency: ReadPump and WritePump run in their own goroutines, so each
 *   connection has at most one reader and one writer.
 * - Keepalive: Pings are sent periodically and a missing pong closes the connection.
 *
 * @dependencies
 * - github.com/gorilla/websocket: The WebSocket library used for connection handling.
 */

package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	Logger *slog.Logger

	subscriptions map[string]bool
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		Logger:        logger,
		subscriptions: make(map[string]bool),
	}
}

// subscriptionMessage is an incoming request, e.g.
// {"type":"subscribe","symbols":["STRK","LORDS"]}.
type subscriptionMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

func (c *Client) remoteAddr() string {
	if c.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Error("unexpected websocket close error", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage processes subscription requests from the client.
func (c *Client) handleMessage(message []byte) {
	var msg subscriptionMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Logger.Warn("failed to unmarshal quote feed message", "error", err, "remote_addr", c.remoteAddr())
		return
	}

	switch msg.Type {
	case "subscribe":
		for _, symbol := range msg.Symbols {
			symbol = strings.ToUpper(strings.TrimSpace(symbol))
			if symbol == "" || c.subscriptions[symbol] {
				continue
			}
			c.subscriptions[symbol] = true
			c.Hub.send(c.Hub.subscribe, subscription{client: c, symbol: symbol})
		}
	case "unsubscribe":
		for _, symbol := range msg.Symbols {
			symbol = strings.ToUpper(strings.TrimSpace(symbol))
			if c.subscriptions[symbol] {
				delete(c.subscriptions, symbol)
				c.Hub.send(c.Hub.unsubscribe, subscription{client: c, symbol: symbol})
			}
		}
	default:
		c.Logger.Warn("received unknown message type from client", "type", msg.Type)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Logger.Error("failed to write quote update", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
