package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephanniegb/death-mountain/internal/chainrails"
	"github.com/stephanniegb/death-mountain/internal/payment"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

func TestParseBalances(t *testing.T) {
	got, err := parseBalances("strk=10, TICKET=2 ,")
	require.NoError(t, err)
	assert.Equal(t, payment.Balances{"STRK": "10", "TICKET": "2"}, got)

	_, err = parseBalances("STRK")
	assert.Error(t, err)
}

func TestParseView(t *testing.T) {
	k, err := parseView("Token")
	require.NoError(t, err)
	assert.Equal(t, payment.ViewToken, k)

	_, err = parseView("crypto")
	assert.Error(t, err)
}

func TestPromptPresenter(t *testing.T) {
	var out bytes.Buffer
	p := &promptPresenter{in: strings.NewReader("y\n"), out: &out}

	outcome, err := p.Present(context.Background(), json.RawMessage(`{"sessionToken":"t"}`))
	require.NoError(t, err)
	assert.Equal(t, chainrails.OutcomeSuccess, outcome)
	assert.Contains(t, out.String(), `{"sessionToken":"t"}`)

	p = &promptPresenter{in: strings.NewReader(""), out: &out}
	outcome, err = p.Present(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, chainrails.OutcomeCancelled, outcome)
}

func TestPurchasePrinter(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&purchasePrinter{out: &out, url: "https://shop.example"}).OpenBuyTicket(context.Background()))
	assert.Equal(t, "Buy a ticket at https://shop.example\n", out.String())

	out.Reset()
	require.NoError(t, (&purchasePrinter{out: &out}).OpenBuyTicket(context.Background()))
	assert.Contains(t, out.String(), "purchase screen")
}

func TestParseGoldenIDs(t *testing.T) {
	ids, err := parseGoldenIDs("42, 0x2a,")
	require.NoError(t, err)
	assert.Equal(t, []string{"0x2a", "0x2a"}, ids)

	ids, err = parseGoldenIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseGoldenIDs("pass-1")
	assert.ErrorIs(t, err, starknet.ErrInvalidFelt)

	_, err = parseGoldenIDs("-3")
	assert.ErrorIs(t, err, starknet.ErrInvalidFelt)
}
