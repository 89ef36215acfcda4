package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephanniegb/death-mountain/internal/services"
)

type stubSource struct {
	calls atomic.Int32
}

func (s *stubSource) TicketPrice(_ context.Context, symbol string) (services.TicketPrice, error) {
	s.calls.Add(1)
	if symbol == "DOGE" {
		return services.TicketPrice{}, services.ErrTokenNotSupported
	}
	if symbol == "LORDS" {
		return services.TicketPrice{}, fmt.Errorf("%w: upstream timeout", services.ErrQuoteFailed)
	}
	return services.TicketPrice{Symbol: symbol, Amount: "2.5", Display: "2.5", RawTotal: "-2500000000000000000"}, nil
}

func startFeed(t *testing.T, source PriceSource) *websocket.Conn {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(ctx, source, time.Hour, logger)
	go hub.Run()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, logger)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) Update {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var u Update
	require.NoError(t, json.Unmarshal(data, &u))
	return u
}

func TestQuoteFeedPushesPrice(t *testing.T) {
	conn := startFeed(t, &stubSource{})

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "symbols": []string{"strk"}}))

	u := readUpdate(t, conn)
	assert.Equal(t, "quote", u.Type)
	assert.Equal(t, "STRK", u.Symbol)
	require.NotNil(t, u.Data)
	assert.Equal(t, "2.5", u.Data.Display)
}

func TestQuoteFeedPushesErrors(t *testing.T) {
	conn := startFeed(t, &stubSource{})

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "symbols": []string{"DOGE"}}))
	u := readUpdate(t, conn)
	assert.Equal(t, Update{Type: "error", Symbol: "DOGE", Message: "Token not supported"}, u)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "symbols": []string{"LORDS"}}))
	u = readUpdate(t, conn)
	assert.Equal(t, Update{Type: "error", Symbol: "LORDS", Message: "Failed to get quote"}, u)
}

func TestHubStopsPollerWithLastSubscriber(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx, &stubSource{}, time.Hour, logger)
	c := &Client{Hub: hub, Send: make(chan []byte, 1), Logger: logger, subscriptions: map[string]bool{}}

	// Exercise the loop's handlers directly; Run is not started.
	hub.clients[c] = true
	hub.subscriptions["STRK"] = map[*Client]bool{c: true}
	stopped := false
	hub.pollers["STRK"] = func() { stopped = true }

	hub.broadcast(priceUpdate{symbol: "STRK", payload: []byte(`{}`)})
	assert.Len(t, c.Send, 1)

	// The buffer is full, so the next update drops the client.
	hub.broadcast(priceUpdate{symbol: "STRK", payload: []byte(`{}`)})
	assert.NotContains(t, hub.clients, c)
	assert.Empty(t, hub.subscriptions)
	assert.Empty(t, hub.pollers)
	assert.True(t, stopped)
}

func TestHubReplaysLatestPriceToNewSubscriber(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx, &stubSource{}, time.Hour, logger)
	first := &Client{Hub: hub, Send: make(chan []byte, 4), Logger: logger, subscriptions: map[string]bool{}}
	second := &Client{Hub: hub, Send: make(chan []byte, 4), Logger: logger, subscriptions: map[string]bool{}}
	hub.clients[first] = true
	hub.clients[second] = true

	// Run is not started; the existing subscription and poller are staged by hand.
	hub.subscriptions["STRK"] = map[*Client]bool{first: true}
	stopped := false
	hub.pollers["STRK"] = func() { stopped = true }

	hub.broadcast(priceUpdate{symbol: "STRK", payload: []byte(`{"type":"quote"}`)})
	require.Len(t, first.Send, 1)

	hub.addSubscription(subscription{client: second, symbol: "STRK"})
	require.Len(t, second.Send, 1)
	assert.Equal(t, `{"type":"quote"}`, string(<-second.Send))
	assert.Len(t, hub.pollers, 1)

	// Updates for symbols nobody watches are not retained.
	hub.broadcast(priceUpdate{symbol: "ETH", payload: []byte(`{}`)})
	assert.NotContains(t, hub.latest, "ETH")

	hub.dropSubscription(first, "STRK")
	hub.dropSubscription(second, "STRK")
	assert.True(t, stopped)
	assert.NotContains(t, hub.latest, "STRK")
}
