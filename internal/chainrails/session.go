package chainrails

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DestinationChain and SettlementToken are fixed: funds always land on
	// Starknet as USDC.
	DestinationChain = "STARKNET"
	SettlementToken  = "USDC"
)

// ErrSessionUnavailable is returned when the hosted session cannot be opened.
var ErrSessionUnavailable = errors.New("payment session unavailable")

// SessionURL builds the session-token URL the hosted modal calls for a recipient.
func SessionURL(baseURL, recipient string) string {
	q := url.Values{}
	q.Set("recipient", recipient)
	q.Set("destinationChain", DestinationChain)
	q.Set("token", SettlementToken)
	return strings.TrimSuffix(baseURL, "/") + "/create-session?" + q.Encode()
}

// Outcome is how the user left the hosted checkout.
type Outcome int

const (
	OutcomeCancelled Outcome = iota
	OutcomeSuccess
)

// Presenter shows a minted session to the user and reports how checkout ended.
type Presenter interface {
	Present(ctx context.Context, session json.RawMessage) (Outcome, error)
}

// HostedSession is a single checkout bound to one recipient.
type HostedSession struct {
	sessionURL string
	httpClient *http.Client
	presenter  Presenter
	onSuccess  func()
	onCancel   func()
	logger     *slog.Logger
}

// SessionFactory builds hosted sessions against this server's session endpoint.
type SessionFactory struct {
	baseURL    string
	httpClient *http.Client
	presenter  Presenter
	logger     *slog.Logger
}

// NewSessionFactory creates a factory for hosted checkout sessions.
func NewSessionFactory(baseURL string, presenter Presenter, logger *slog.Logger) *SessionFactory {
	return &SessionFactory{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		presenter:  presenter,
		logger:     logger,
	}
}

// NewSession returns a session for recipient. Either callback may be nil.
func (f *SessionFactory) NewSession(recipient string, onSuccess, onCancel func()) *HostedSession {
	return &HostedSession{
		sessionURL: SessionURL(f.baseURL, recipient),
		httpClient: f.httpClient,
		presenter:  f.presenter,
		onSuccess:  onSuccess,
		onCancel:   onCancel,
		logger:     f.logger,
	}
}

// OpenSession creates a session for recipient and opens it.
func (f *SessionFactory) OpenSession(ctx context.Context, recipient string, onSuccess, onCancel func()) error {
	return f.NewSession(recipient, onSuccess, onCancel).Open(ctx)
}

// Open mints a session token, hands it to the presenter and fires the callback
// matching the outcome.
func (s *HostedSession) Open(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sessionURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Info("opening payment session", "url", s.sessionURL)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("failed to fetch payment session", "error", err, "url", s.sessionURL)
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSessionUnavailable, resp.StatusCode)
	}

	outcome, err := s.presenter.Present(ctx, json.RawMessage(body))
	if err != nil {
		return err
	}

	switch outcome {
	case OutcomeSuccess:
		s.logger.Info("cross-chain payment completed")
		if s.onSuccess != nil {
			s.onSuccess()
		}
	default:
		s.logger.Info("cross-chain payment cancelled")
		if s.onCancel != nil {
			s.onCancel()
		}
	}
	return nil
}
