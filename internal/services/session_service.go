/**
 * @description
 * This file contains the business logic behind the session-token endpoint. It
 * sits between the HTTP handler and the Chainrails client, and records every
 * issued session in the ledger when one is configured.
 *
 * Key features:
 * - Validation: All three parameters are required before Chainrails is contacted.
 * - Fixed Amount: Sessions are always requested with amount "0"; the hosted
 *   checkout collects the amount itself.
 * - Best-effort Ledger: A ledger failure is logged and never fails the request.
 *   Recipients are stored in canonical felt form so counts match across spellings.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/network"
	"github.com/stephanniegb/death-mountain/internal/store"
)

// ErrMissingParameters is returned when recipient, destination chain or token is empty.
var ErrMissingParameters = errors.New("missing required parameters")

// SessionTokenIssuer mints payment session tokens.
type SessionTokenIssuer interface {
	GetSessionToken(ctx context.Context, req chainrails.SessionRequest) (json.RawMessage, error)
}

// SessionService issues payment session tokens.
type SessionService struct {
	issuer SessionTokenIssuer
	ledger store.Ledger
	logger *slog.Logger
}

/**
 * @description
 * NewSessionService creates a new SessionService.
 *
 * @param issuer The Chainrails client.
 * @param ledger The session ledger; nil disables recording.
 * @param logger A structured logger.
 */
func NewSessionService(issuer SessionTokenIssuer, ledger store.Ledger, logger *slog.Logger) *SessionService {
	return &SessionService{
		issuer: issuer,
		ledger: ledger,
		logger: logger,
	}
}

/**
 * @description
 * CreateSession validates the request, obtains a session token and records it.
 *
 * @param ctx The request context.
 * @param req Recipient, destination chain and token. Any Amount is replaced by "0".
 * @returns The session object exactly as Chainrails returned it.
 */
func (s *SessionService) CreateSession(ctx context.Context, req chainrails.SessionRequest) (json.RawMessage, error) {
	if req.Recipient == "" || req.DestinationChain == "" || req.Token == "" {
		return nil, ErrMissingParameters
	}
	req.Amount = "0"

	session, err := s.issuer.GetSessionToken(ctx, req)
	if err != nil {
		s.logger.Error("failed to create payment session", "error", err, "recipient", req.Recipient)
		return nil, err
	}

	if s.ledger != nil {
		s.record(ctx, req)
	}

	return session, nil
}

func (s *SessionService) record(ctx context.Context, req chainrails.SessionRequest) {
	recipient := req.Recipient
	if canonical, ok := network.NormalizeAddress(recipient); ok {
		recipient = canonical
	}

	record, err := s.ledger.RecordSession(ctx, store.RecordSessionParams{
		Recipient:        recipient,
		DestinationChain: req.DestinationChain,
		Token:            req.Token,
		Amount:           req.Amount,
	})
	if err != nil {
		s.logger.Warn("failed to record payment session", "error", err, "recipient", recipient)
		return
	}

	total, err := s.ledger.CountSessionsByRecipient(ctx, recipient)
	if err != nil {
		s.logger.Warn("failed to count payment sessions", "error", err, "recipient", recipient)
	}
	s.logger.Info("payment session recorded", "session_id", record.ID, "recipient", recipient, "recipient_sessions", total)
}
