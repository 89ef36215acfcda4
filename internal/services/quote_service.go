/**
 * @description
 * This file contains the quote service: the Ekubo quoter behind a short-lived
 * cache, plus the ticket pricing used by the HTTP quote endpoint.
 *
 * Key features:
 * - Read-through Cache: Quotes are cached under `quote:{buy}:{sell}:{amount}`.
 *   "No route" answers are cached too, encoded as JSON null.
 * - Fail Open: Cache errors are logged and bypassed; only quoter errors surface.
 * - Ticket Pricing: Resolves a payment token by symbol and prices one ticket in it,
 *   applying the same normalization and messages as the payment modal.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/network"
	"github.com/stephanniegb/death-mountain/internal/payment"
)

// Pre-defined errors for ticket pricing. Their messages match the modal's inline errors.
var (
	ErrTokenNotSupported = errors.New(payment.MsgTokenNotSupported)
	ErrNoQuote           = errors.New(payment.MsgNoQuote)
	ErrNoLiquidity       = errors.New(payment.MsgNoLiquidity)
	ErrQuoteFailed       = errors.New(payment.MsgQuoteFailed)
)

// TicketPrice is the cost of one ticket in a payment token.
type TicketPrice struct {
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Display  string `json:"display"`
	RawTotal string `json:"raw_total"`
}

// QuoteService prices swaps through Ekubo with an optional cache in front.
type QuoteService struct {
	source payment.QuoteService
	cache  QuoteCache
	ttl    time.Duration
	net    network.Network
	logger *slog.Logger
}

/**
 * @description
 * NewQuoteService creates a new QuoteService.
 *
 * @param source The upstream quoter, normally an *ekubo.Client.
 * @param cache The quote cache; nil disables caching.
 * @param ttl How long cached quotes stay valid.
 * @param net The network whose ticket and payment tokens are priced.
 * @param logger A structured logger.
 */
func NewQuoteService(source payment.QuoteService, cache QuoteCache, ttl time.Duration, net network.Network, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		source: source,
		cache:  cache,
		ttl:    ttl,
		net:    net,
		logger: logger,
	}
}

func quoteCacheKey(amount *big.Int, tokenToBuy, tokenToSell string) string {
	return fmt.Sprintf("quote:%s:%s:%s", strings.ToLower(tokenToBuy), strings.ToLower(tokenToSell), amount.String())
}

func (s *QuoteService) lookupToken(ref string) (network.PaymentToken, bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToLower(ref), "0x") {
		return s.net.TokenByAddress(ref)
	}
	return s.net.TokenBySymbol(strings.ToUpper(ref))
}

// GetSwapQuote implements payment.QuoteService.
func (s *QuoteService) GetSwapQuote(ctx context.Context, amount *big.Int, tokenToBuy, tokenToSell string) (*ekubo.Quote, error) {
	key := quoteCacheKey(amount, tokenToBuy, tokenToSell)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("quote cache read failed", "error", err, "key", key)
		case ok:
			var quote *ekubo.Quote
			if err := json.Unmarshal(cached, &quote); err == nil {
				return quote, nil
			}
			s.logger.Warn("discarding undecodable cached quote", "key", key)
		}
	}

	quote, err := s.source.GetSwapQuote(ctx, amount, tokenToBuy, tokenToSell)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		encoded, err := json.Marshal(quote)
		if err == nil {
			err = s.cache.Set(ctx, key, encoded, s.ttl)
		}
		if err != nil {
			s.logger.Warn("quote cache write failed", "error", err, "key", key)
		}
	}

	return quote, nil
}

/**
 * @description
 * TicketPrice prices one ticket in a payment token, named either by symbol or by
 * its 0x contract address.
 *
 * @returns ErrTokenNotSupported for unknown symbols and for the ticket itself,
 *          ErrNoQuote when no route exists, ErrNoLiquidity for a zero total, and
 *          an error wrapping ErrQuoteFailed when the quoter fails.
 */
func (s *QuoteService) TicketPrice(ctx context.Context, symbol string) (TicketPrice, error) {
	token, ok := s.lookupToken(symbol)
	if !ok || token.Address == "" || s.net.TicketAddress == "" || network.SameAddress(token.Address, s.net.TicketAddress) {
		return TicketPrice{}, ErrTokenNotSupported
	}

	quote, err := s.GetSwapQuote(ctx, ekubo.ExactOutputOneTicket(), s.net.TicketAddress, token.Address)
	if err != nil {
		s.logger.Error("failed to price ticket", "error", err, "symbol", token.Symbol)
		return TicketPrice{}, fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}
	if quote == nil {
		return TicketPrice{}, ErrNoQuote
	}

	value := payment.NormalizeQuote(quote.Total.Value(), token.TokenDecimals())
	if value == 0 {
		return TicketPrice{}, ErrNoLiquidity
	}

	display := payment.FormatAmount(value, token.TokenDisplayDecimals())
	if token.Symbol == network.SettlementTokenSymbol {
		display = payment.FormatFixed(value, 2)
	}

	return TicketPrice{
		Symbol:   token.Symbol,
		Amount:   strconv.FormatFloat(value, 'f', -1, 64),
		Display:  display,
		RawTotal: quote.Total.Value().String(),
	}, nil
}
