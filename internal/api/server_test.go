package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions struct {
	got     chainrails.SessionRequest
	session json.RawMessage
	err     error
}

func (s *stubSessions) CreateSession(_ context.Context, req chainrails.SessionRequest) (json.RawMessage, error) {
	s.got = req
	return s.session, s.err
}

type stubPricer struct {
	price services.TicketPrice
	err   error
}

func (p *stubPricer) TicketPrice(context.Context, string) (services.TicketPrice, error) {
	return p.price, p.err
}

func newTestServer(sessions SessionCreator, quotes TicketPricer) *Server {
	return NewServer(sessions, quotes, nil, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Origin", "https://game.example")
	s.Router.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	rec := serve(newTestServer(&stubSessions{}, nil), http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chainrails server is running", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(&stubSessions{}, nil), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestPreflight(t *testing.T) {
	rec := serve(newTestServer(&stubSessions{}, nil), http.MethodOptions, "/create-session")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestCreateSessionForwardsToken(t *testing.T) {
	sessions := &stubSessions{session: json.RawMessage(`{"sessionToken":"abc","expiresAt":"2025-01-01T00:00:00Z"}`)}
	s := newTestServer(sessions, nil)

	rec := serve(s, http.MethodGet, "/create-session?recipient=0xabc&destinationChain=STARKNET&token=USDC")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionToken":"abc","expiresAt":"2025-01-01T00:00:00Z"}`, rec.Body.String())
	assert.Equal(t, chainrails.SessionRequest{Recipient: "0xabc", DestinationChain: "STARKNET", Token: "USDC"}, sessions.got)
}

func TestCreateSessionMissingParameters(t *testing.T) {
	s := newTestServer(&stubSessions{err: services.ErrMissingParameters}, nil)

	rec := serve(s, http.MethodGet, "/create-session?recipient=0xabc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required parameters"}`, rec.Body.String())
}

func TestCreateSessionHidesProcessorErrors(t *testing.T) {
	err := fmt.Errorf("%w: status 401: invalid api key", chainrails.ErrSessionRequest)
	s := newTestServer(&stubSessions{err: err}, nil)

	rec := serve(s, http.MethodGet, "/create-session?recipient=0xabc&destinationChain=STARKNET&token=USDC")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "api key")
}

func TestTicketQuote(t *testing.T) {
	tests := []struct {
		name     string
		pricer   *stubPricer
		wantCode int
		wantBody string
	}{
		{
			name:     "priced",
			pricer:   &stubPricer{price: services.TicketPrice{Symbol: "USDC", Amount: "1.5", Display: "1.50", RawTotal: "-1500000"}},
			wantCode: http.StatusOK,
			wantBody: `{"status":"success","data":{"symbol":"USDC","amount":"1.5","display":"1.50","raw_total":"-1500000"}}`,
		},
		{
			name:     "no liquidity",
			pricer:   &stubPricer{err: services.ErrNoLiquidity},
			wantCode: http.StatusNotFound,
			wantBody: `{"status":"error","message":"No liquidity"}`,
		},
		{
			name:     "unsupported",
			pricer:   &stubPricer{err: services.ErrTokenNotSupported},
			wantCode: http.StatusNotFound,
			wantBody: `{"status":"error","message":"Token not supported"}`,
		},
		{
			name:     "quoter down",
			pricer:   &stubPricer{err: fmt.Errorf("%w: %v", services.ErrQuoteFailed, errors.New("timeout"))},
			wantCode: http.StatusBadGateway,
			wantBody: `{"status":"error","message":"Failed to get quote"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(&stubSessions{}, tt.pricer), http.MethodGet, "/quote/usdc")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestCreateSessionThroughChainrails(t *testing.T) {
	var gotAuth string
	var gotBody chainrails.SessionRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/auth/session-token", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessionToken":"live","amount":"0"}`))
	}))
	defer upstream.Close()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client := chainrails.NewClient(upstream.URL, "secret", logger)
	s := newTestServer(services.NewSessionService(client, nil, logger), nil)

	rec := serve(s, http.MethodGet, "/create-session?recipient=0xabc&destinationChain=STARKNET&token=USDC&amount=25")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionToken":"live","amount":"0"}`, rec.Body.String())
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "0", gotBody.Amount)
	assert.Equal(t, "0xabc", gotBody.Recipient)
	assert.NotContains(t, rec.Body.String(), "secret")
}
