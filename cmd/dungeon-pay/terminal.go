package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/payment"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

func parseBalances(s string) (payment.Balances, error) {
	out := payment.Balances{}
	for _, pair := range splitList(s) {
		symbol, amount, ok := strings.Cut(pair, "=")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid balance %q, want SYMBOL=amount", pair)
		}
		out[symbol] = strings.TrimSpace(amount)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseGoldenIDs reads decimal or hex golden pass token ids and renders them as felts.
func parseGoldenIDs(s string) ([]string, error) {
	var ids []string
	for _, raw := range splitList(s) {
		v, err := starknet.ParseFelt(raw)
		if err != nil || v.Sign() < 0 {
			return nil, fmt.Errorf("golden pass id %q: %w", raw, starknet.ErrInvalidFelt)
		}
		ids = append(ids, starknet.Felt(v))
	}
	return ids, nil
}

func parseView(s string) (payment.ViewKind, error) {
	for _, k := range []payment.ViewKind{payment.ViewGolden, payment.ViewTicket, payment.ViewToken, payment.ViewCard} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

func printState(w io.Writer, session *payment.Session) {
	st := session.State()

	fmt.Fprintf(w, "View: %s\n", st.View)
	switch st.View.Kind() {
	case payment.ViewGolden:
		fmt.Fprintln(w, "You have a golden pass. Enter Dungeon for free.")
	case payment.ViewTicket:
		text, bulkLabel, bulk := session.TicketSummary()
		fmt.Fprintln(w, text)
		if bulk {
			fmt.Fprintf(w, "  [%s]\n", bulkLabel)
		}
	case payment.ViewToken:
		fmt.Fprintln(w, st.Subtitle)
		for _, t := range st.Tokens {
			marker := " "
			if t.Symbol == st.SelectedToken {
				marker = "*"
			}
			fmt.Fprintf(w, " %s %-6s %s\n", marker, t.Symbol, t.Balance)
		}
		if flow, _ := st.View.Flow(); flow == payment.FlowWallet {
			fmt.Fprintln(w, st.WalletCost)
			fmt.Fprintf(w, "  [%s]%s\n", st.WalletSubmit.Label, disabled(st.WalletSubmit))
		}
		if flow, _ := st.View.Flow(); flow == payment.FlowCrossChain {
			fmt.Fprintln(w, st.CrossChainCost)
			fmt.Fprintf(w, "  [%s]%s\n", st.CrossChainSubmit.Label, disabled(st.CrossChainSubmit))
		}
		if !st.CrossChainAvailable {
			fmt.Fprintln(w, "Cross-chain payment is not available on this network.")
		}
	case payment.ViewCard:
		fmt.Fprintln(w, "Buy a dungeon ticket with a card or another wallet.")
	}

	for _, l := range st.Links {
		fmt.Fprintf(w, "  > %s\n", l.Label)
	}
}

func disabled(s payment.SubmitState) string {
	if s.Enabled {
		return ""
	}
	return " (disabled)"
}

// promptPresenter prints the minted session and asks whether checkout completed.
type promptPresenter struct {
	in  io.Reader
	out io.Writer
}

func (p *promptPresenter) Present(_ context.Context, session json.RawMessage) (chainrails.Outcome, error) {
	fmt.Fprintf(p.out, "Payment session: %s\n", session)
	fmt.Fprint(p.out, "Complete the checkout, then confirm [y/N]: ")

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return chainrails.OutcomeCancelled, err
	}
	if answer := strings.ToLower(strings.TrimSpace(line)); answer == "y" || answer == "yes" {
		return chainrails.OutcomeSuccess, nil
	}
	return chainrails.OutcomeCancelled, nil
}

// purchasePrinter points the player at the external ticket shop.
type purchasePrinter struct {
	out io.Writer
	url string
}

func (p *purchasePrinter) OpenBuyTicket(context.Context) error {
	if p.url == "" {
		_, err := fmt.Fprintln(p.out, "Buy a ticket from your wallet's purchase screen.")
		return err
	}
	_, err := fmt.Fprintf(p.out, "Buy a ticket at %s\n", p.url)
	return err
}
