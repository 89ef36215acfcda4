/**
 * @description
 * This file defines the WebSocket `Hub`, the central manager for live ticket quote
 * subscriptions. Clients subscribe to payment token symbols and receive the price of
 * one dungeon ticket in that token whenever it is refreshed.
 *
 * Key features:
 * - Connection Management: Maintains a registry of all connected clients.
 * - Channel-based Communication: Registration, subscription and price updates all
 *   flow through channels into the single `Run` loop, which owns every map.
 * - Per-symbol Pollers: The first subscriber to a symbol starts a poller; the last one
 *   to leave stops it, so idle symbols cost nothing.
 * - Last Price Replay: A client joining a symbol that is already polled receives the
 *   most recent update right away.
 * - Slow Consumers: A client whose send buffer is full is dropped instead of blocking
 *   the hub.
 *
 * @notes
 * - `Run` should be started as a goroutine when the application launches. Cancelling
 *   the hub context closes every client.
 */

package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/stephanniegb/death-mountain/internal/services"
)

// DefaultPollInterval is how often a subscribed symbol is re-priced.
const DefaultPollInterval = 15 * time.Second

// PriceSource prices one ticket in a payment token.
type PriceSource interface {
	TicketPrice(ctx context.Context, symbol string) (services.TicketPrice, error)
}

// Update is the message pushed to subscribers.
type Update struct {
	Type    string                `json:"type"`
	Symbol  string                `json:"symbol"`
	Data    *services.TicketPrice `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
}

// subscription represents a client's subscription to one symbol.
type subscription struct {
	client *Client
	symbol string
}

type priceUpdate struct {
	symbol  string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts price updates to them.
type Hub struct {
	clients       map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	subscribe     chan subscription
	unsubscribe   chan subscription
	updates       chan priceUpdate
	subscriptions map[string]map[*Client]bool
	pollers       map[string]context.CancelFunc
	latest        map[string][]byte

	source   PriceSource
	interval time.Duration
	logger   *slog.Logger
	ctx      context.Context
}

// NewHub creates a new Hub. A non-positive interval uses DefaultPollInterval.
func NewHub(ctx context.Context, source PriceSource, interval time.Duration, logger *slog.Logger) *Hub {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		unsubscribe:   make(chan subscription),
		updates:       make(chan priceUpdate),
		subscriptions: make(map[string]map[*Client]bool),
		pollers:       make(map[string]context.CancelFunc),
		latest:        make(map[string][]byte),
		source:        source,
		interval:      interval,
		logger:        logger,
		ctx:           ctx,
	}
}

// Register adds a client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) send(ch chan subscription, sub subscription) {
	select {
	case ch <- sub:
	case <-h.ctx.Done():
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's event loop. It should be run in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("quote hub shutting down")
			for client := range h.clients {
				h.removeClient(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("quote feed client registered", "remote_addr", client.remoteAddr(), "total_clients", len(h.clients))
		case client := <-h.unregister:
			if h.clients[client] {
				h.removeClient(client)
				h.logger.Info("quote feed client unregistered", "remote_addr", client.remoteAddr())
			}
		case sub := <-h.subscribe:
			h.addSubscription(sub)
		case sub := <-h.unsubscribe:
			h.dropSubscription(sub.client, sub.symbol)
		case u := <-h.updates:
			h.broadcast(u)
		}
	}
}

func (h *Hub) addSubscription(sub subscription) {
	if !h.clients[sub.client] {
		return
	}
	subs, ok := h.subscriptions[sub.symbol]
	if !ok {
		subs = make(map[*Client]bool)
		h.subscriptions[sub.symbol] = subs
		h.startPoller(sub.symbol)
	}
	subs[sub.client] = true
	h.logger.Info("client subscribed to quotes", "symbol", sub.symbol, "subscribers", len(subs))

	if payload, ok := h.latest[sub.symbol]; ok {
		h.deliver(sub.client, sub.symbol, payload)
	}
}

func (h *Hub) startPoller(symbol string) {
	ctx, cancel := context.WithCancel(h.ctx)
	h.pollers[symbol] = cancel
	go h.poll(ctx, symbol)
}

func (h *Hub) dropSubscription(c *Client, symbol string) {
	subs, ok := h.subscriptions[symbol]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) > 0 {
		return
	}
	delete(h.subscriptions, symbol)
	delete(h.latest, symbol)
	if cancel, ok := h.pollers[symbol]; ok {
		cancel()
		delete(h.pollers, symbol)
	}
}

// removeClient drops c from every subscription and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	for symbol := range h.subscriptions {
		h.dropSubscription(c, symbol)
	}
	delete(h.clients, c)
	close(c.Send)
}

func (h *Hub) broadcast(u priceUpdate) {
	subs, ok := h.subscriptions[u.symbol]
	if !ok || u.payload == nil {
		return
	}
	h.latest[u.symbol] = u.payload
	for client := range subs {
		h.deliver(client, u.symbol, u.payload)
	}
}

// deliver queues payload for c, dropping c when its buffer is full.
func (h *Hub) deliver(c *Client, symbol string, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		h.logger.Warn("client send buffer full, unregistering", "symbol", symbol, "remote_addr", c.remoteAddr())
		h.removeClient(c)
	}
}

// poll prices symbol immediately and then on every tick until ctx ends.
func (h *Hub) poll(ctx context.Context, symbol string) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		payload := h.price(ctx, symbol)
		select {
		case h.updates <- priceUpdate{symbol: symbol, payload: payload}:
		case <-ctx.Done():
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) price(ctx context.Context, symbol string) []byte {
	update := Update{Type: "quote", Symbol: symbol}
	price, err := h.source.TicketPrice(ctx, symbol)
	if err != nil {
		update.Type = "error"
		update.Message = err.Error()
		// Wrapped quoter failures carry upstream detail; clients only see the inline message.
		if msg, _, ok := strings.Cut(err.Error(), ":"); ok {
			update.Message = msg
		}
	} else {
		update.Data = &price
	}

	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("failed to encode quote update", "error", err, "symbol", symbol)
		return nil
	}
	return payload
}
