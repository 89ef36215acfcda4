/**
 * @description
 * This file implements the HTTP client for Ekubo's quoter API, which prices swaps
 * across Ekubo pools on Starknet.
 *
 * Key features:
 * - Exact-output Quotes: A negative amount asks for the input required to receive
 *   exactly that much of the token being bought.
 * - Route Decoding: Splits and hops are decoded so the swap call builder can replay
 *   the same route on-chain.
 * - Error Handling: "No route" answers map to a nil quote; transport and server
 *   failures are returned as errors.
 *
 * @dependencies
 * - net/http: For HTTP requests
 * - github.com/ethereum/go-ethereum/common/math: For big integer parsing
 */

package ekubo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
)

// DefaultBaseURL is the public Ekubo mainnet quoter.
const DefaultBaseURL = "https://starknet-mainnet-api.ekubo.org/quote"

// ErrQuoteRequest wraps every transport or server-side quote failure.
var ErrQuoteRequest = errors.New("ekubo quote request failed")

// ExactOutputOneTicket is the amount sentinel that asks for the input needed to
// receive one whole ticket (10^18 units).
func ExactOutputOneTicket() *big.Int {
	return new(big.Int).Neg(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// Amount is a big integer that decodes from JSON numbers, decimal strings and hex strings.
type Amount struct {
	*big.Int
}

// NewAmount wraps an int64.
func NewAmount(v int64) Amount {
	return Amount{big.NewInt(v)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if string(data) == "null" {
		a.Int = nil
		return nil
	}
	v, ok := math.ParseBig256(string(data))
	if !ok {
		return fmt.Errorf("invalid amount %q", data)
	}
	a.Int = v
	return nil
}

// MarshalJSON implements json.Marshaler; amounts are written as decimal strings.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.Int.String())
}

// Value returns the wrapped integer, or zero when unset.
func (a Amount) Value() *big.Int {
	if a.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.Int)
}

// PoolKey identifies an Ekubo pool.
type PoolKey struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         Amount `json:"fee"`
	TickSpacing Amount `json:"tick_spacing"`
	Extension   string `json:"extension"`
}

// RouteNode is one hop of a swap route.
type RouteNode struct {
	PoolKey        PoolKey `json:"pool_key"`
	SqrtRatioLimit Amount  `json:"sqrt_ratio_limit"`
	SkipAhead      Amount  `json:"skip_ahead"`
}

// Split is a portion of the requested amount routed through a sequence of pools.
type Split struct {
	AmountSpecified  Amount      `json:"amount_specified"`
	AmountCalculated Amount      `json:"amount_calculated"`
	Route            []RouteNode `json:"route"`
}

// Quote is the quoter's answer. Total is signed and denominated in the smallest
// unit of the token being sold; for exact-output quotes it is a debit (negative).
type Quote struct {
	Total  Amount  `json:"total"`
	Splits []Split `json:"splits"`
}

type quoteError struct {
	Error string `json:"error"`
}

// Client handles interactions with Ekubo's quoter API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new quoter client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// GetSwapQuote prices a swap of tokenToSell into tokenToBuy. A negative amount is
// an exact-output request for |amount| of tokenToBuy. It returns (nil, nil) when the
// quoter has no route for the pair.
func (c *Client) GetSwapQuote(ctx context.Context, amount *big.Int, tokenToBuy, tokenToSell string) (*Quote, error) {
	apiURL := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, amount.String(), tokenToBuy, tokenToSell)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrQuoteRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to fetch quote from Ekubo", "error", err, "buy", tokenToBuy, "sell", tokenToSell)
		return nil, fmt.Errorf("%w: %v", ErrQuoteRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrQuoteRequest, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info("no Ekubo route for pair", "buy", tokenToBuy, "sell", tokenToSell)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		var qErr quoteError
		if err := json.Unmarshal(body, &qErr); err == nil && qErr.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrQuoteRequest, qErr.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrQuoteRequest, resp.StatusCode)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrQuoteRequest, err)
	}
	if quote.Total.Int == nil {
		return nil, nil
	}

	return &quote, nil
}
