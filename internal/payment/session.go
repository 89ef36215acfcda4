/**
 * @description
 * This file implements the payment flow state machine behind the dungeon access
 * modal. A Session lives from the moment the modal opens until it closes.
 *
 * Key features:
 * - Initial View: Chosen once at open from the wallet's holdings, in the order
 *   golden pass, ticket, token, card.
 * - Token Sub-flow: The token view starts on a choice between paying from the
 *   wallet and paying from another chain; Back returns to that choice.
 * - Quote Streams: The wallet quote is re-issued on entry to the wallet flow and on
 *   every token selection; the cross-chain quote is fetched once per session.
 *   Each stream is an AsyncValue, so late answers for a previous token are dropped.
 * - Submission: Golden pass and ticket entries carry no calls; wallet payment
 *   builds swap calls from a fresh quote; cross-chain payment opens a hosted
 *   checkout whose success callback enters with a ticket.
 *
 * @notes
 * - All methods are safe for concurrent use. Collaborators are never called while
 *   the session lock is held.
 */

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/network"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

// MaxBulkMint caps how many tickets a single bulk mint consumes.
const MaxBulkMint = 50

// Submit button labels.
const (
	LabelEnterDungeon        = "Enter Dungeon"
	LabelInsufficientBalance = "Insufficient Balance"
)

// Deps are the collaborators a Session drives.
type Deps struct {
	Network  network.Network
	Quotes   QuoteService
	Swaps    SwapCallBuilder
	Entry    EntrySubmitter
	Purchase TicketPurchaser
	BulkMint BulkMinter
	Sessions PaymentSessions
	Logger   *slog.Logger
}

// Wallet is the read-only snapshot of the player's holdings at open.
type Wallet struct {
	Address       string
	Balances      Balances
	GoldenPassIDs []string
}

// SubmitState is the enter button of a flow.
type SubmitState struct {
	Enabled bool
	Label   string
}

// State is a consistent snapshot of everything the modal renders.
type State struct {
	View                View
	Subtitle            string
	Tokens              []EligibleToken
	SelectedToken       string
	TicketCount         int
	CrossChainAvailable bool
	WalletQuote         QuoteStatus
	CrossChainQuote     QuoteStatus
	WalletSubmit        SubmitState
	CrossChainSubmit    SubmitState
	WalletCost          string
	CrossChainCost      string
	Links               []Link
}

// Session is one open payment modal.
type Session struct {
	deps   Deps
	wallet Wallet
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	closed         bool
	eligible       []EligibleToken
	ticketCount    int
	initial        ViewKind
	view           View
	selected       string
	settlement     network.PaymentToken
	hasSettlement  bool
	crossRequested bool
	walletQuote    AsyncValue[QuotedAmount]
	crossQuote     AsyncValue[QuotedAmount]
}

/**
 * @description
 * Open starts a payment session for wallet. The initial view is computed here and
 * never recomputed; only explicit navigation changes it afterwards.
 *
 * @param ctx Parent context; quote fetches stop when it is cancelled or the session closes.
 * @param deps The collaborators the session drives.
 * @param wallet The player's holdings at the time the modal opened.
 */
func Open(ctx context.Context, deps Deps, wallet Wallet) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionCtx, cancel := context.WithCancel(ctx)

	tokens := deps.Network.PaymentTokens
	eligible := EligibleTokens(tokens, wallet.Balances, deps.Network.TicketAddress, network.NativeCurrencySymbol)
	ticketCount := TicketCount(tokens, wallet.Balances, deps.Network.TicketAddress)
	settlement, hasSettlement := deps.Network.SettlementToken()

	s := &Session{
		deps:          deps,
		wallet:        wallet,
		logger:        logger.With("recipient", wallet.Address),
		ctx:           sessionCtx,
		cancel:        cancel,
		eligible:      eligible,
		ticketCount:   ticketCount,
		settlement:    settlement,
		hasSettlement: hasSettlement,
	}
	s.initial = SelectInitialView(len(wallet.GoldenPassIDs), ticketCount, eligible)

	s.mu.Lock()
	s.reconcileSelectionLocked()
	s.showLocked(s.initial)
	s.mu.Unlock()

	s.logger.Info("payment session opened", "view", s.initial.String(), "eligible_tokens", len(eligible), "tickets", ticketCount)
	return s
}

// InitialView returns the view chosen at open.
func (s *Session) InitialView() ViewKind {
	return s.initial
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Eligible returns the tokens usable for wallet payment, in configuration order.
func (s *Session) Eligible() []EligibleToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EligibleToken(nil), s.eligible...)
}

// TicketCount returns the number of tickets currently held.
func (s *Session) TicketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketCount
}

// SelectedToken returns the symbol of the token chosen for wallet payment.
func (s *Session) SelectedToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// CrossChainAvailable reports whether the settlement token is configured.
func (s *Session) CrossChainAvailable() bool {
	return s.hasSettlement
}

// eligibleFor reports whether kind can be navigated to. The card view always can.
func (s *Session) eligibleFor(kind ViewKind) bool {
	switch kind {
	case ViewGolden:
		return len(s.wallet.GoldenPassIDs) > 0
	case ViewTicket:
		return s.ticketCount >= 1
	case ViewToken:
		return hasPositiveBalance(s.eligible)
	case ViewCard:
		return true
	default:
		return false
	}
}

// Navigate switches the outer view. Only eligible views can be reached.
func (s *Session) Navigate(kind ViewKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !s.eligibleFor(kind) {
		return ErrNotEligible
	}
	if s.view.Kind() == kind {
		return nil
	}
	s.showLocked(kind)
	s.logger.Info("payment view changed", "view", s.view.String())
	return nil
}

// showLocked enters kind. Entering the token view resets it to the initial
// choice, preselects the first eligible token and starts the one-shot
// cross-chain quote.
func (s *Session) showLocked(kind ViewKind) {
	s.view = viewOf(kind)
	if kind != ViewToken {
		return
	}
	if s.crossRequested {
		return
	}
	s.crossRequested = true
	if !s.hasSettlement {
		s.crossQuote.FailNow(network.SettlementTokenSymbol, MsgCrossChainUnavailable)
		return
	}
	t := s.crossQuote.Begin(s.settlement.Symbol)
	s.startQuoteLocked("cross_chain", t, &s.crossQuote, s.settlement, func(v float64) string {
		return FormatFixed(v, 2)
	})
}

// ChooseWallet moves the token view to paying from the connected wallet and
// quotes the selected token.
func (s *Session) ChooseWallet() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokenViewLocked(); err != nil {
		return err
	}
	if s.view.Is(FlowWallet) {
		return nil
	}
	s.view = TokenView(FlowWallet)
	s.requestWalletQuoteLocked()
	return nil
}

// ChooseCrossChain moves the token view to paying from another chain.
func (s *Session) ChooseCrossChain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokenViewLocked(); err != nil {
		return err
	}
	if !s.hasSettlement {
		return ErrCrossChainUnavailable
	}
	s.view = TokenView(FlowCrossChain)
	return nil
}

// Back returns the token view to the initial choice.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokenViewLocked(); err != nil {
		return err
	}
	s.view = TokenView(FlowInitial)
	return nil
}

// SelectToken changes the token used for wallet payment. In the wallet flow the
// quote is re-issued; any answer still in flight for the previous token is dropped.
func (s *Session) SelectToken(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokenViewLocked(); err != nil {
		return err
	}
	if _, ok := s.tokenLocked(symbol); !ok {
		return ErrUnknownToken
	}
	s.selectLocked(symbol)
	return nil
}

// selectLocked makes symbol the wallet payment token. Outside the wallet flow a
// quote for another token is discarded, including one still in flight.
func (s *Session) selectLocked(symbol string) {
	s.selected = symbol
	switch {
	case s.view.Is(FlowWallet) && symbol != "":
		s.requestWalletQuoteLocked()
	case s.walletQuote.Key() != symbol:
		s.walletQuote.Reset()
	}
}

/**
 * @description
 * UpdateBalances replaces the wallet balances with a fresh read. The eligible
 * tokens, the ticket count and balance sufficiency follow the new balances; the
 * initial view chosen at open does not change.
 *
 * @notes
 * - The first eligible token is selected once the set becomes non-empty, and again
 *   when the selected token drops out of it.
 */
func (s *Session) UpdateBalances(balances Balances) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	tokens := s.deps.Network.PaymentTokens
	s.wallet.Balances = balances
	s.eligible = EligibleTokens(tokens, balances, s.deps.Network.TicketAddress, network.NativeCurrencySymbol)
	s.ticketCount = TicketCount(tokens, balances, s.deps.Network.TicketAddress)
	s.reconcileSelectionLocked()

	s.logger.Debug("wallet balances updated", "eligible_tokens", len(s.eligible), "tickets", s.ticketCount, "selected", s.selected)
	return nil
}

func (s *Session) reconcileSelectionLocked() {
	if _, ok := s.tokenLocked(s.selected); ok {
		return
	}
	next := ""
	if len(s.eligible) > 0 {
		next = s.eligible[0].Symbol
	}
	s.selectLocked(next)
}

func (s *Session) tokenViewLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.view.Kind() != ViewToken {
		return ErrWrongView
	}
	return nil
}

func (s *Session) tokenLocked(symbol string) (EligibleToken, bool) {
	for _, t := range s.eligible {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return EligibleToken{}, false
}

func (s *Session) requestWalletQuoteLocked() {
	t := s.walletQuote.Begin(s.selected)
	token, ok := s.tokenLocked(s.selected)
	if !ok {
		s.walletQuote.Fail(t, MsgTokenNotSupported)
		return
	}
	display := token.TokenDisplayDecimals()
	s.startQuoteLocked("wallet", t, &s.walletQuote, token.PaymentToken, func(v float64) string {
		return FormatAmount(v, display)
	})
}

func (s *Session) startQuoteLocked(stream string, t Ticket, target *AsyncValue[QuotedAmount], token network.PaymentToken, format func(float64) string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		amount, _, msg, err := priceTicket(s.ctx, s.deps.Quotes, s.deps.Network.TicketAddress, token, format)
		if err != nil {
			s.logger.Error("error fetching quote", "stream", stream, "token", token.Symbol, "error", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		var applied bool
		if msg != "" {
			applied = target.Fail(t, msg)
		} else {
			applied = target.Resolve(t, amount)
		}
		if !applied {
			s.logger.Debug("discarding stale quote", "stream", stream, "token", t.Key, "current", target.Key())
		}
	}()
}

// WalletQuote returns the wallet quote stream.
func (s *Session) WalletQuote() QuoteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statusOf(&s.walletQuote)
}

// CrossChainQuote returns the cross-chain quote stream.
func (s *Session) CrossChainQuote() QuoteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statusOf(&s.crossQuote)
}

// WalletSubmit reports whether the wallet payment can be submitted: the quote
// settled without error and the selected balance covers it.
func (s *Session) WalletSubmit() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletSubmitLocked()
}

func (s *Session) walletSubmitLocked() SubmitState {
	quoted, ok := s.walletQuote.Value()
	token, found := s.tokenLocked(s.selected)
	enabled := ok && found && s.walletQuote.Key() == s.selected && s.walletQuote.Err() == "" && token.Amount() >= quoted.Value
	if enabled {
		return SubmitState{Enabled: true, Label: LabelEnterDungeon}
	}
	return SubmitState{Label: LabelInsufficientBalance}
}

// CrossChainSubmit reports whether the cross-chain checkout can be opened.
func (s *Session) CrossChainSubmit() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crossChainSubmitLocked()
}

func (s *Session) crossChainSubmitLocked() SubmitState {
	_, ok := s.crossQuote.Value()
	return SubmitState{Enabled: ok && s.hasSettlement, Label: LabelEnterDungeon}
}

// State returns a snapshot of the whole modal.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		View:                s.view,
		Tokens:              append([]EligibleToken(nil), s.eligible...),
		SelectedToken:       s.selected,
		TicketCount:         s.ticketCount,
		CrossChainAvailable: s.hasSettlement,
		WalletQuote:         statusOf(&s.walletQuote),
		CrossChainQuote:     statusOf(&s.crossQuote),
		WalletSubmit:        s.walletSubmitLocked(),
		CrossChainSubmit:    s.crossChainSubmitLocked(),
		Links:               s.linksLocked(),
	}
	if s.view.Kind() == ViewToken {
		st.Subtitle = s.view.Subtitle()
	}
	st.WalletCost = costLine(st.WalletQuote, s.selected)
	st.CrossChainCost = costLine(st.CrossChainQuote, network.SettlementTokenSymbol)
	return st
}

func costLine(q QuoteStatus, symbol string) string {
	switch {
	case q.Loading:
		return "Loading quote..."
	case q.Error != "":
		return "Error: " + q.Error
	case q.Amount != "":
		return fmt.Sprintf("Cost: %s %s", q.Amount, symbol)
	default:
		return "Loading..."
	}
}

// FooterLinks returns the navigation affordances under the current view.
func (s *Session) FooterLinks() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linksLocked()
}

var (
	linkGolden = Link{Label: "Use golden token instead", Target: ViewGolden}
	linkTicket = Link{Label: "Use dungeon ticket instead", Target: ViewTicket}
	linkToken  = Link{Label: "Pay with crypto in your wallet", Target: ViewToken}
	linkCard   = Link{Label: "Buy a ticket", Target: ViewCard}
	linkOther  = Link{Label: "Pay with other wallets", External: true}
)

func (s *Session) linksLocked() []Link {
	switch s.view.Kind() {
	case ViewGolden:
		switch {
		case s.eligibleFor(ViewTicket):
			return []Link{linkTicket}
		case s.eligibleFor(ViewToken):
			return []Link{linkToken}
		default:
			return []Link{linkCard}
		}
	case ViewTicket:
		if s.eligibleFor(ViewToken) {
			return []Link{linkToken}
		}
		return []Link{linkCard}
	case ViewToken:
		return []Link{linkOther}
	case ViewCard:
		var links []Link
		for _, l := range []Link{linkGolden, linkTicket, linkToken} {
			if s.eligibleFor(l.Target) {
				links = append(links, l)
			}
		}
		return links
	}
	return nil
}

// TicketSummary describes the ticket view: the count line and, when more than
// one ticket is held, the bulk mint label.
func (s *Session) TicketSummary() (text string, bulkLabel string, bulk bool) {
	n := s.TicketCount()
	text = fmt.Sprintf("You have %d ticket", n)
	if n > 1 {
		text += "s"
	}
	if n <= 1 {
		return text, "", false
	}
	if n > MaxBulkMint {
		return text, fmt.Sprintf("Bulk Mint %d Games", MaxBulkMint), true
	}
	return text, "Bulk Mint All Games", true
}

// BulkMint consumes up to MaxBulkMint tickets through the bulk minter and closes
// the session once the minter is done.
func (s *Session) BulkMint(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.view.Kind() != ViewTicket || s.ticketCount <= 1 {
		s.mu.Unlock()
		return ErrWrongView
	}
	count := min(s.ticketCount, MaxBulkMint)
	s.mu.Unlock()

	s.logger.Info("bulk minting games", "count", count)
	return s.deps.BulkMint.BulkMintGames(ctx, count, s.Close)
}

// PayWithOtherWallets opens the external purchase flow without closing the modal.
func (s *Session) PayWithOtherWallets(ctx context.Context) error {
	s.mu.Lock()
	if err := s.tokenViewLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.deps.Purchase.OpenBuyTicket(ctx)
}

/**
 * @description
 * Submit performs the enter action of the current view.
 *
 * @notes
 * - Golden pass: enters with the first held pass and no calls.
 * - Ticket: enters with a ticket and no calls.
 * - Token/wallet: re-quotes, builds swap calls and enters with a ticket plus those calls.
 * - Token/cross-chain: opens the hosted checkout; its success callback enters with a
 *   ticket and no calls, the processor having delivered the ticket token.
 * - Card: opens the external purchase flow and closes the session.
 */
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	view := s.view
	walletSubmit := s.walletSubmitLocked()
	crossSubmit := s.crossChainSubmitLocked()
	selected, _ := s.tokenLocked(s.selected)
	s.mu.Unlock()

	switch {
	case view.Kind() == ViewGolden:
		if len(s.wallet.GoldenPassIDs) == 0 {
			return ErrNoGoldenPass
		}
		payment := PaymentDescriptor{
			Type: PaymentGoldenPass,
			GoldenPass: &GoldenPassRef{
				Address: s.deps.Network.GoldenToken,
				TokenID: s.wallet.GoldenPassIDs[0],
			},
		}
		return s.enter(ctx, payment, nil)

	case view.Kind() == ViewTicket:
		return s.enter(ctx, PaymentDescriptor{Type: PaymentTicket}, nil)

	case view.Is(FlowWallet):
		if !walletSubmit.Enabled {
			return ErrSubmitDisabled
		}
		return s.submitSwap(ctx, selected.PaymentToken)

	case view.Is(FlowCrossChain):
		if !crossSubmit.Enabled {
			return ErrSubmitDisabled
		}
		return s.openCrossChain(ctx)

	case view.Kind() == ViewCard:
		if err := s.deps.Purchase.OpenBuyTicket(ctx); err != nil {
			return err
		}
		s.Close()
		return nil
	}
	return ErrWrongView
}

func (s *Session) submitSwap(ctx context.Context, token network.PaymentToken) error {
	ticketAddress := s.deps.Network.TicketAddress

	quote, err := s.deps.Quotes.GetSwapQuote(ctx, ekubo.ExactOutputOneTicket(), ticketAddress, token.Address)
	if err != nil {
		s.logger.Error("error refreshing quote for submission", "token", token.Symbol, "error", err)
		return fmt.Errorf("%s: %w", MsgQuoteFailed, err)
	}
	if quote == nil {
		return fmt.Errorf("%s: %w", MsgNoQuote, ErrSubmitDisabled)
	}
	if NormalizeQuote(quote.Total.Value(), token.TokenDecimals()) == 0 {
		return fmt.Errorf("%s: %w", MsgNoLiquidity, ErrSubmitDisabled)
	}

	calls := s.deps.Swaps.BuildSwapCalls(token.Address, ekubo.TokenSwap{
		TokenAddress:  ticketAddress,
		MinimumAmount: 1,
		Quote:         quote,
	})
	return s.enter(ctx, PaymentDescriptor{Type: PaymentTicket}, calls)
}

func (s *Session) openCrossChain(ctx context.Context) error {
	onSuccess := func() {
		if err := s.enter(ctx, PaymentDescriptor{Type: PaymentTicket}, nil); err != nil {
			s.logger.Error("failed to enter dungeon after cross-chain payment", "error", err)
		}
	}
	onCancel := func() {
		s.logger.Info("cross-chain payment cancelled")
	}
	return s.deps.Sessions.OpenSession(ctx, s.wallet.Address, onSuccess, onCancel)
}

func (s *Session) enter(ctx context.Context, payment PaymentDescriptor, calls []starknet.Call) error {
	s.logger.Info("entering dungeon", "payment_type", string(payment.Type), "calls", len(calls))
	return s.deps.Entry.EnterDungeon(ctx, payment, calls)
}

// Wait blocks until every quote fetch issued so far has settled.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close ends the session. In-flight fetches are cancelled and later operations
// return ErrSessionClosed. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.logger.Info("payment session closed")
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
