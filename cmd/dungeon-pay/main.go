// Package main provides a CLI that runs the dungeon payment flow headlessly for
// a wallet: it picks the payment view, fetches live quotes, prints the modal state
// and optionally submits entry through the entry relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/config"
	"github.com/stephanniegb/death-mountain/internal/ekubo"
	"github.com/stephanniegb/death-mountain/internal/network"
	"github.com/stephanniegb/death-mountain/internal/payment"
	"github.com/stephanniegb/death-mountain/internal/services"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

func main() {
	var (
		wallet   string
		balances string
		refresh  string
		golden   string
		view     string
		flow     string
		token    string
		submit   bool
		bulkMint bool
		verbose  bool
	)

	flag.StringVar(&wallet, "wallet", "", "player wallet address (required)")
	flag.StringVar(&balances, "balances", "", "wallet balances as SYMBOL=amount pairs, e.g. STRK=10,TICKET=2")
	flag.StringVar(&refresh, "refresh", "", "balances re-read after navigation, same format as -balances")
	flag.StringVar(&golden, "golden", "", "comma-separated golden pass token ids")
	flag.StringVar(&view, "view", "", "navigate to a view after opening (golden, ticket, token, card)")
	flag.StringVar(&flow, "flow", "", "token view flow (wallet, cross-chain)")
	flag.StringVar(&token, "token", "", "payment token symbol for the wallet flow")
	flag.BoolVar(&submit, "submit", false, "submit the current view")
	flag.BoolVar(&bulkMint, "bulk-mint", false, "bulk mint games from held tickets")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	if wallet == "" {
		fmt.Fprintln(os.Stderr, "Error: -wallet is required")
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, options{
		wallet:   wallet,
		balances: balances,
		refresh:  refresh,
		golden:   golden,
		view:     view,
		flow:     flow,
		token:    token,
		submit:   submit,
		bulkMint: bulkMint,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	wallet   string
	balances string
	refresh  string
	golden   string
	view     string
	flow     string
	token    string
	submit   bool
	bulkMint bool
}

func run(logger *slog.Logger, opts options) error {
	cfg, err := config.LoadClientConfig(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	chain, err := network.Lookup(cfg.Network)
	if err != nil {
		return fmt.Errorf("network %q: %w", cfg.Network, err)
	}

	bal, err := parseBalances(opts.balances)
	if err != nil {
		return err
	}
	goldenIDs, err := parseGoldenIDs(opts.golden)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var entry payment.EntrySubmitter = unavailableRelay{}
	var minter payment.BulkMinter = unavailableRelay{}
	if cfg.EntryRelayAddress != "" {
		relay, err := services.NewEntryRelayClient(cfg.EntryRelayAddress, logger)
		if err != nil {
			return fmt.Errorf("entry relay: %w", err)
		}
		defer relay.Close()
		player := relay.ForPlayer(opts.wallet)
		entry, minter = player, player
	}

	quotes := services.NewQuoteService(ekubo.NewClient(cfg.EkuboAPIURL, logger), nil, 0, chain, logger)
	presenter := &promptPresenter{in: os.Stdin, out: os.Stdout}

	session := payment.Open(ctx, payment.Deps{
		Network:  chain,
		Quotes:   quotes,
		Swaps:    ekubo.NewCallBuilder(chain.EkuboRouter, cfg.SlippageBps),
		Entry:    entry,
		Purchase: &purchasePrinter{out: os.Stdout, url: cfg.TicketShopURL},
		BulkMint: minter,
		Sessions: chainrails.NewSessionFactory(cfg.SessionBaseURL, presenter, logger),
		Logger:   logger,
	}, payment.Wallet{
		Address:       opts.wallet,
		Balances:      bal,
		GoldenPassIDs: goldenIDs,
	})
	defer func() {
		session.Close()
		session.Wait()
	}()

	if err := steer(session, opts); err != nil {
		return err
	}
	if opts.refresh != "" {
		fresh, err := parseBalances(opts.refresh)
		if err != nil {
			return err
		}
		if err := session.UpdateBalances(fresh); err != nil {
			return fmt.Errorf("refresh balances: %w", err)
		}
	}
	session.Wait()
	printState(os.Stdout, session)

	switch {
	case opts.bulkMint:
		if err := session.BulkMint(ctx); err != nil {
			return fmt.Errorf("bulk mint: %w", err)
		}
		fmt.Println("Bulk mint submitted.")
	case opts.submit:
		if err := session.Submit(ctx); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		fmt.Println("Submitted.")
	}
	return nil
}

// steer applies the requested navigation in the order a player would click.
func steer(session *payment.Session, opts options) error {
	if opts.view != "" {
		kind, err := parseView(opts.view)
		if err != nil {
			return err
		}
		if err := session.Navigate(kind); err != nil {
			return fmt.Errorf("navigate to %s: %w", kind, err)
		}
	}

	if opts.token != "" {
		if err := session.SelectToken(opts.token); err != nil {
			return fmt.Errorf("select %s: %w", opts.token, err)
		}
	}

	switch opts.flow {
	case "":
	case "wallet":
		if err := session.ChooseWallet(); err != nil {
			return fmt.Errorf("choose wallet: %w", err)
		}
	case "cross-chain":
		if err := session.ChooseCrossChain(); err != nil {
			return fmt.Errorf("choose cross-chain: %w", err)
		}
	default:
		return fmt.Errorf("unknown flow %q", opts.flow)
	}
	return nil
}

var errNoRelay = errors.New("ENTRY_RELAY_ADDRESS is not set")

type unavailableRelay struct{}

func (unavailableRelay) EnterDungeon(context.Context, payment.PaymentDescriptor, []starknet.Call) error {
	return errNoRelay
}

func (unavailableRelay) BulkMintGames(context.Context, int, func()) error {
	return errNoRelay
}
