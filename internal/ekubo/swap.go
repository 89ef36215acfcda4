package ekubo

import (
	"math/big"

	"github.com/stephanniegb/death-mountain/internal/starknet"
)

// DefaultSlippageBps is the buffer added on top of the quoted input, in basis points.
const DefaultSlippageBps = 100

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// TokenSwap describes what the swap must deliver.
type TokenSwap struct {
	// TokenAddress is the token being bought.
	TokenAddress string
	// MinimumAmount is the minimum number of whole tokens the caller must end up with.
	MinimumAmount int64
	// Quote is the route to replay; nil degrades to a transfer and refund.
	Quote *Quote
}

// CallBuilder produces router calls for a fixed router contract.
type CallBuilder struct {
	Router      string
	SlippageBps int64
}

// NewCallBuilder returns a builder for the given router address.
func NewCallBuilder(router string, slippageBps int64) *CallBuilder {
	return &CallBuilder{Router: router, SlippageBps: slippageBps}
}

// BuildSwapCalls implements the swap-call contract consumed by the payment flow.
func (b *CallBuilder) BuildSwapCalls(purchaseToken string, swap TokenSwap) []starknet.Call {
	return GenerateSwapCalls(b.Router, purchaseToken, swap, b.SlippageBps)
}

/**
 * @description
 * GenerateSwapCalls returns the ordered multicall that pays the router in the
 * purchase token, replays the quoted route, asserts the minimum output and refunds
 * whatever input was not consumed.
 *
 * @param router The Ekubo router contract address.
 * @param purchaseToken The token the caller pays with.
 * @param swap The token to buy, the minimum whole amount and the quote to replay.
 * @param slippageBps Extra input transferred on top of the quoted total.
 * @returns transfer, swap (shape depends on the route), clear_minimum, clear.
 */
func GenerateSwapCalls(router, purchaseToken string, swap TokenSwap, slippageBps int64) []starknet.Call {
	refund := starknet.Call{
		ContractAddress: router,
		Entrypoint:      "clear",
		Calldata:        []string{purchaseToken},
	}

	if swap.Quote == nil {
		transfer := transferCall(purchaseToken, router, new(big.Int))
		return []starknet.Call{transfer, refund}
	}

	total := swap.Quote.Total.Value()
	total.Abs(total)
	buffer := new(big.Int).Mul(total, big.NewInt(slippageBps))
	buffer.Quo(buffer, big.NewInt(10_000))
	transferAmount := new(big.Int).Add(total, buffer)

	calls := []starknet.Call{transferCall(purchaseToken, router, transferAmount)}

	tokenAmount := tokenAmountCalldata(swap.TokenAddress, swap.Quote.Splits)
	switch {
	case len(swap.Quote.Splits) == 1 && len(swap.Quote.Splits[0].Route) == 1:
		calldata := routeNodeCalldata(swap.Quote.Splits[0].Route[0])
		calldata = append(calldata, tokenAmount...)
		calls = append(calls, starknet.Call{ContractAddress: router, Entrypoint: "swap", Calldata: calldata})
	case len(swap.Quote.Splits) == 1:
		calldata := routeCalldata(swap.Quote.Splits[0].Route)
		calldata = append(calldata, tokenAmount...)
		calls = append(calls, starknet.Call{ContractAddress: router, Entrypoint: "multihop_swap", Calldata: calldata})
	case len(swap.Quote.Splits) > 1:
		calldata := []string{starknet.FeltUint(uint64(len(swap.Quote.Splits)))}
		for _, split := range swap.Quote.Splits {
			calldata = append(calldata, routeCalldata(split.Route)...)
			calldata = append(calldata, swap.TokenAddress)
			calldata = append(calldata, starknet.I129(split.AmountSpecified.Value())...)
		}
		calls = append(calls, starknet.Call{ContractAddress: router, Entrypoint: "multi_multihop_swap", Calldata: calldata})
	}

	minimum := new(big.Int).Mul(big.NewInt(swap.MinimumAmount), oneToken)
	clearMinimum := starknet.Call{
		ContractAddress: router,
		Entrypoint:      "clear_minimum",
		Calldata:        append([]string{swap.TokenAddress}, starknet.U256(minimum)...),
	}

	return append(calls, clearMinimum, refund)
}

func transferCall(token, recipient string, amount *big.Int) starknet.Call {
	return starknet.Call{
		ContractAddress: token,
		Entrypoint:      "transfer",
		Calldata:        append([]string{recipient}, starknet.U256(amount)...),
	}
}

// tokenAmountCalldata encodes the TokenAmount of a single-split swap: the bought
// token and the split's specified (negative, exact-output) amount.
func tokenAmountCalldata(token string, splits []Split) []string {
	amount := new(big.Int)
	if len(splits) > 0 {
		amount = splits[0].AmountSpecified.Value()
	}
	return append([]string{token}, starknet.I129(amount)...)
}

func routeCalldata(route []RouteNode) []string {
	calldata := []string{starknet.FeltUint(uint64(len(route)))}
	for _, node := range route {
		calldata = append(calldata, routeNodeCalldata(node)...)
	}
	return calldata
}

func routeNodeCalldata(node RouteNode) []string {
	calldata := []string{
		node.PoolKey.Token0,
		node.PoolKey.Token1,
		starknet.Felt(node.PoolKey.Fee.Value()),
		starknet.Felt(node.PoolKey.TickSpacing.Value()),
		node.PoolKey.Extension,
	}
	calldata = append(calldata, starknet.U256(node.SqrtRatioLimit.Value())...)
	return append(calldata, starknet.Felt(node.SkipAhead.Value()))
}
