package payment

import (
	"math"
	"strconv"
	"strings"

	"github.com/stephanniegb/death-mountain/internal/network"
)

// Balances maps a token symbol to its balance as a decimal string.
type Balances map[string]string

// amount parses a balance; missing or malformed balances count as zero.
func (b Balances) amount(symbol string) float64 {
	raw, ok := b[symbol]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// EligibleToken is a payment token the wallet can actually spend.
type EligibleToken struct {
	network.PaymentToken
	Balance string

	balance float64
}

// Amount returns the parsed balance.
func (t EligibleToken) Amount() float64 {
	return t.balance
}

// EligibleTokens filters the configured payment tokens down to the ones usable
// for payment, preserving configuration order. A token is dropped when its
// balance is not positive, when it is the ticket token itself, or when it is the
// non-transferable native currency.
func EligibleTokens(tokens []network.PaymentToken, balances Balances, ticketAddress, nativeSymbol string) []EligibleToken {
	var out []EligibleToken
	for _, t := range tokens {
		bal := balances.amount(t.Symbol)
		if bal <= 0 {
			continue
		}
		if network.SameAddress(t.Address, ticketAddress) {
			continue
		}
		if t.Symbol == nativeSymbol {
			continue
		}
		display, ok := balances[t.Symbol]
		if !ok {
			display = strconv.FormatFloat(bal, 'f', -1, 64)
		}
		out = append(out, EligibleToken{PaymentToken: t, Balance: strings.TrimSpace(display), balance: bal})
	}
	return out
}

// TicketCount returns how many whole tickets the wallet holds. The ticket is
// found by address; no match yields 0.
func TicketCount(tokens []network.PaymentToken, balances Balances, ticketAddress string) int {
	for _, t := range tokens {
		if !network.SameAddress(t.Address, ticketAddress) {
			continue
		}
		n := math.Floor(balances.amount(t.Symbol))
		if n <= 0 {
			return 0
		}
		if n > math.MaxInt32 {
			return math.MaxInt32
		}
		return int(n)
	}
	return 0
}

// SelectInitialView applies the fixed priority golden pass > ticket > token > card.
func SelectInitialView(goldenPassCount, ticketCount int, eligible []EligibleToken) ViewKind {
	switch {
	case goldenPassCount > 0:
		return ViewGolden
	case ticketCount >= 1:
		return ViewTicket
	case hasPositiveBalance(eligible):
		return ViewToken
	default:
		return ViewCard
	}
}

func hasPositiveBalance(tokens []EligibleToken) bool {
	for _, t := range tokens {
		if t.balance > 0 {
			return true
		}
	}
	return false
}
