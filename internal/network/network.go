/**
 * @description
 * This file defines the static, per-network configuration consumed by the payment
 * flow: which tokens can pay for dungeon entry, where the ticket token and golden
 * pass collection live, and which swap router builds the entry calls.
 *
 * Key features:
 * - Payment Tokens: Symbol, contract address and decimals for every token the
 *   payment modal may offer.
 * - Contract Addresses: Ticket token, golden pass collection and Ekubo router.
 * - Address Matching: Starknet addresses are felts, so `0x04ab` and `0x4ab` refer
 *   to the same contract. All lookups compare numerically.
 *
 * @notes
 * - The table is immutable for the process lifetime. Callers receive copies.
 */

package network

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	Mainnet = "SN_MAIN"

	// NativeCurrencySymbol is the in-game currency. It is non-transferable and can
	// never be used to pay for entry.
	NativeCurrencySymbol = "SURVIVOR"

	// SettlementTokenSymbol is the stablecoin the cross-chain processor settles in.
	SettlementTokenSymbol = "USDC"

	DefaultDecimals        = 18
	DefaultDisplayDecimals = 4
)

// ErrUnknownNetwork is returned when a network name has no configuration entry.
var ErrUnknownNetwork = errors.New("unknown network")

// PaymentToken describes a token accepted as payment.
type PaymentToken struct {
	Symbol          string `json:"symbol"`
	Address         string `json:"address"`
	Decimals        int    `json:"decimals"`
	DisplayDecimals int    `json:"display_decimals"`
}

// TokenDecimals returns the token decimals, defaulting to 18 when unset.
func (t PaymentToken) TokenDecimals() int {
	if t.Decimals <= 0 {
		return DefaultDecimals
	}
	return t.Decimals
}

// TokenDisplayDecimals returns the display precision, defaulting to 4 when unset.
func (t PaymentToken) TokenDisplayDecimals() int {
	if t.DisplayDecimals <= 0 {
		return DefaultDisplayDecimals
	}
	return t.DisplayDecimals
}

// Network holds the contract addresses and payment tokens of one Starknet network.
type Network struct {
	Name          string
	TicketAddress string
	GoldenToken   string
	EkuboRouter   string
	PaymentTokens []PaymentToken
}

// Networks is the configuration table keyed by network name.
var Networks = map[string]Network{
	Mainnet: {
		Name:          Mainnet,
		TicketAddress: "0x0452810188c4cb3aebd63711a3b445755bc0d6c4f27b923fdd99b1a118858136",
		GoldenToken:   "0x027838dea749f41c6f8a44fcfa791788e6101080c1b3cd646a361f653ad10e2d",
		EkuboRouter:   "0x0199741822c2dc722f6f605204f35e56dbc23bceed54818168c4c49e4fb8737e",
		PaymentTokens: []PaymentToken{
			{Symbol: "ETH", Address: "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7", Decimals: 18, DisplayDecimals: 4},
			{Symbol: "STRK", Address: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d", Decimals: 18, DisplayDecimals: 2},
			{Symbol: "LORDS", Address: "0x0124aeb495b947201f5fac96fd1138e326ad86195b98df6dec9009158a533b49", Decimals: 18, DisplayDecimals: 2},
			{Symbol: "USDC", Address: "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8", Decimals: 6, DisplayDecimals: 2},
			{Symbol: "TICKET", Address: "0x0452810188c4cb3aebd63711a3b445755bc0d6c4f27b923fdd99b1a118858136", Decimals: 18, DisplayDecimals: 0},
			{Symbol: "SURVIVOR", Address: "0x042dd777885ad2c116be96d4d634abc90a26a790ffb5871e037dd5ae7d2ec86b", Decimals: 18, DisplayDecimals: 2},
		},
	},
}

// Lookup returns a copy of the named network configuration.
func Lookup(name string) (Network, error) {
	n, ok := Networks[name]
	if !ok {
		return Network{}, ErrUnknownNetwork
	}
	n.PaymentTokens = append([]PaymentToken(nil), n.PaymentTokens...)
	return n, nil
}

// TokenBySymbol finds a payment token by its symbol.
func (n Network) TokenBySymbol(symbol string) (PaymentToken, bool) {
	for _, t := range n.PaymentTokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return PaymentToken{}, false
}

// TokenByAddress finds a payment token by contract address.
func (n Network) TokenByAddress(address string) (PaymentToken, bool) {
	for _, t := range n.PaymentTokens {
		if SameAddress(t.Address, address) {
			return t, true
		}
	}
	return PaymentToken{}, false
}

// SettlementToken returns the cross-chain settlement token, if configured.
func (n Network) SettlementToken() (PaymentToken, bool) {
	t, ok := n.TokenBySymbol(SettlementTokenSymbol)
	if !ok || t.Address == "" {
		return PaymentToken{}, false
	}
	return t, true
}

// SameAddress reports whether two hex felts name the same contract.
// Empty or malformed addresses never match.
func SameAddress(a, b string) bool {
	x, ok := parseFelt(a)
	if !ok {
		return false
	}
	y, ok := parseFelt(b)
	if !ok {
		return false
	}
	return x.Cmp(y) == 0
}

// NormalizeAddress renders a felt address without leading zeros, e.g. "0x4ab".
func NormalizeAddress(a string) (string, bool) {
	v, ok := parseFelt(a)
	if !ok {
		return "", false
	}
	return hexutil.EncodeBig(v), true
}

func parseFelt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if !strings.HasPrefix(s, "0x") {
		return nil, false
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		return new(big.Int), true
	}
	// hexutil rejects leading zeros, so decode the trimmed form.
	v, err := hexutil.DecodeBig("0x" + digits)
	if err != nil {
		return nil, false
	}
	return v, true
}
