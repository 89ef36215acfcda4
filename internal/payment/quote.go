package payment

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/network"
)

// Quote error messages shown inline under the cost line.
const (
	MsgQuoteFailed           = "Failed to get quote"
	MsgNoQuote               = "No quote available"
	MsgNoLiquidity           = "No liquidity"
	MsgTokenNotSupported     = "Token not supported"
	MsgCrossChainUnavailable = "Cross-chain payment unavailable"
)

// QuotedAmount is a normalized quote: the raw value drives the sufficiency
// check, the display string is what the player sees.
type QuotedAmount struct {
	Value   float64
	Display string
}

// QuoteStatus is the display projection of a quote stream. Loading and a
// populated Amount never occur together.
type QuoteStatus struct {
	Amount  string
	Loading bool
	Error   string
}

func statusOf(a *AsyncValue[QuotedAmount]) QuoteStatus {
	if a.Loading() {
		return QuoteStatus{Loading: true}
	}
	if v, ok := a.Value(); ok {
		return QuoteStatus{Amount: v.Display}
	}
	return QuoteStatus{Error: a.Err()}
}

// NormalizeQuote converts a raw quoted total, a debit in the paying token's
// smallest unit, into a positive amount of whole tokens.
func NormalizeQuote(total *big.Int, decimals int) float64 {
	if total == nil {
		return 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	v := new(big.Float).SetInt(new(big.Int).Abs(total))
	v.Quo(v, new(big.Float).SetInt(scale))
	f, _ := v.Float64()
	return f
}

// FormatAmount rounds v to displayDecimals and trims trailing zeros. Positive
// values too small to show render as "<0.0001" (at the given precision).
func FormatAmount(v float64, displayDecimals int) string {
	if displayDecimals < 0 {
		displayDecimals = 0
	}
	s := strconv.FormatFloat(v, 'f', displayDecimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if v > 0 && (s == "0" || s == "-0") {
		if displayDecimals == 0 {
			return "<1"
		}
		return "<0." + strings.Repeat("0", displayDecimals-1) + "1"
	}
	return s
}

// FormatFixed renders v with exactly n decimals, as used for stablecoin costs.
func FormatFixed(v float64, n int) string {
	return strconv.FormatFloat(v, 'f', n, 64)
}

/**
 * @description
 * priceTicket asks the quote service what one ticket costs in token and maps the
 * outcome onto the inline messages: a returned error is "Failed to get quote", a
 * nil quote is "No quote available" and a zero total is "No liquidity".
 *
 * @returns The normalized amount, the raw quote, the inline message ("" on success)
 *          and the underlying error when the quote service failed.
 */
func priceTicket(ctx context.Context, qs QuoteService, ticketAddress string, token network.PaymentToken, format func(float64) string) (QuotedAmount, *ekubo.Quote, string, error) {
	if token.Address == "" || ticketAddress == "" {
		return QuotedAmount{}, nil, MsgTokenNotSupported, nil
	}

	quote, err := qs.GetSwapQuote(ctx, ekubo.ExactOutputOneTicket(), ticketAddress, token.Address)
	if err != nil {
		return QuotedAmount{}, nil, MsgQuoteFailed, err
	}
	if quote == nil {
		return QuotedAmount{}, nil, MsgNoQuote, nil
	}

	value := NormalizeQuote(quote.Total.Value(), token.TokenDecimals())
	if value == 0 {
		return QuotedAmount{}, quote, MsgNoLiquidity, nil
	}

	return QuotedAmount{Value: value, Display: format(value)}, quote, "", nil
}
