/**
 * @description
 * Package payment orchestrates how a player pays to enter the dungeon. It picks
 * the payment surface from the wallet's holdings, fetches live swap quotes,
 * gates submission on balance sufficiency and hands the final entry to the game.
 *
 * This file declares the collaborators the orchestrator talks to. Every
 * collaborator is an interface so the flow can run against the real Ekubo,
 * Chainrails and entry-relay clients or against fakes in tests.
 */

package payment

import (
	"context"
	"errors"
	"math/big"

	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

// Pre-defined errors returned by session operations.
var (
	ErrSessionClosed         = errors.New("payment session is closed")
	ErrNotEligible           = errors.New("payment method is not available for this wallet")
	ErrWrongView             = errors.New("operation not available in the current view")
	ErrUnknownToken          = errors.New("token is not eligible for payment")
	ErrCrossChainUnavailable = errors.New("cross-chain payment is not configured")
	ErrSubmitDisabled        = errors.New("submission is disabled")
	ErrNoGoldenPass          = errors.New("wallet holds no golden pass")
)

// PaymentType names the credential consumed on entry.
type PaymentType string

const (
	PaymentGoldenPass PaymentType = "Golden Pass"
	PaymentTicket     PaymentType = "Ticket"
)

// GoldenPassRef points at the golden pass used for entry.
type GoldenPassRef struct {
	Address string `json:"address"`
	TokenID string `json:"tokenId"`
}

// PaymentDescriptor is the payment argument of the game's entry call.
type PaymentDescriptor struct {
	Type       PaymentType    `json:"paymentType"`
	GoldenPass *GoldenPassRef `json:"goldenPass,omitempty"`
}

// QuoteService prices swaps. A nil quote with a nil error means no route exists.
type QuoteService interface {
	GetSwapQuote(ctx context.Context, amount *big.Int, tokenToBuy, tokenToSell string) (*ekubo.Quote, error)
}

// SwapCallBuilder turns a quote into router calls paid in purchaseToken.
type SwapCallBuilder interface {
	BuildSwapCalls(purchaseToken string, swap ekubo.TokenSwap) []starknet.Call
}

// EntrySubmitter starts a game. Calls run in the same transaction before entry.
type EntrySubmitter interface {
	EnterDungeon(ctx context.Context, payment PaymentDescriptor, calls []starknet.Call) error
}

// TicketPurchaser opens the external ticket purchase flow (card or other wallets).
type TicketPurchaser interface {
	OpenBuyTicket(ctx context.Context) error
}

// BulkMinter consumes several tickets at once. onDone runs after submission.
type BulkMinter interface {
	BulkMintGames(ctx context.Context, count int, onDone func()) error
}

// PaymentSessions opens a hosted cross-chain checkout for recipient.
type PaymentSessions interface {
	OpenSession(ctx context.Context, recipient string, onSuccess, onCancel func()) error
}
