/**
 * @description
 * This file implements the HTTP client for the Chainrails backend API, the
 * cross-chain payment processor that bridges stablecoins from other chains and
 * delivers them on Starknet.
 *
 * Key features:
 * - Session Tokens: Mints a short-lived session token the browser-side payment
 *   modal uses to open a hosted checkout.
 * - Secret Handling: The API key stays on the server; it is only ever sent to
 *   Chainrails in the Authorization header.
 * - Opaque Forwarding: The session object is returned as raw JSON so new fields
 *   added by the processor reach clients without a redeploy.
 */

package chainrails

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAPIURL is the production Chainrails API.
const DefaultAPIURL = "https://api.chainrails.io/api/v1"

// ErrSessionRequest wraps every failure to obtain a session token.
var ErrSessionRequest = errors.New("chainrails session request failed")

// SessionRequest is the body sent to the session-token endpoint.
type SessionRequest struct {
	Amount           string `json:"amount"`
	Recipient        string `json:"recipient"`
	DestinationChain string `json:"destinationChain"`
	Token            string `json:"token"`
}

// APIError represents an error response from the Chainrails API.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client handles interactions with the Chainrails API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Chainrails API client.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

/**
 * @description
 * GetSessionToken asks Chainrails for a payment session bound to a recipient,
 * destination chain and settlement token.
 *
 * @param ctx The context for the HTTP call.
 * @param req The session parameters. An empty Amount is sent as "0", letting the
 *        hosted modal collect the amount.
 * @returns The session object exactly as returned by Chainrails.
 */
func (c *Client) GetSessionToken(ctx context.Context, req SessionRequest) (json.RawMessage, error) {
	if req.Amount == "" {
		req.Amount = "0"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSessionRequest, err)
	}

	apiURL := c.baseURL + "/auth/session-token"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrSessionRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info("requesting chainrails session token", "recipient", req.Recipient, "destination_chain", req.DestinationChain, "token", req.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("failed to reach chainrails", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSessionRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Message != "" || apiErr.Error != "") {
			msg := apiErr.Message
			if msg == "" {
				msg = apiErr.Error
			}
			return nil, fmt.Errorf("%w: status %d: %s", ErrSessionRequest, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: status %d", ErrSessionRequest, resp.StatusCode)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrSessionRequest)
	}

	return json.RawMessage(body), nil
}
