/**
 * @description
 * This file contains the gRPC client for the entry relay, the service that signs
 * and submits game transactions on behalf of a player's session account.
 *
 * Key features:
 * - gRPC Client: Manages the connection to the relay.
 * - Schemaless Payloads: Requests and responses are `structpb.Struct` messages
 *   invoked by full method name, so no generated stubs are needed.
 * - Context Propagation: The caller's context bounds every RPC.
 *
 * @dependencies
 * - google.golang.org/grpc: The Go gRPC library.
 * - google.golang.org/protobuf/types/known/structpb: Dynamic protobuf messages.
 */

package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stephanniegb/death-mountain/internal/payment"
	"github.com/stephanniegb/death-mountain/internal/starknet"
)

// Full gRPC method names served by the entry relay.
const (
	EnterDungeonMethod  = "/dungeon.v1.EntryRelay/EnterDungeon"
	BulkMintGamesMethod = "/dungeon.v1.EntryRelay/BulkMintGames"
)

// ErrRelayRejected is returned when the relay answers without a transaction hash.
var ErrRelayRejected = errors.New("entry relay rejected the request")

// EntryRelayClient talks to the entry relay over gRPC.
type EntryRelayClient struct {
	conn   *grpc.ClientConn
	logger *slog.Logger
}

/**
 * @description
 * NewEntryRelayClient creates a gRPC client for the entry relay.
 *
 * @param address The network address of the relay (e.g., "localhost:8081").
 * @param logger A structured logger.
 * @param opts Extra dial options; the default transport is insecure.
 *
 * @notes
 * - For local development, it uses an insecure connection. In production, pass
 *   grpc.WithTransportCredentials with TLS credentials.
 */
func NewEntryRelayClient(address string, logger *slog.Logger, opts ...grpc.DialOption) (*EntryRelayClient, error) {
	logger.Info("connecting to entry relay", "address", address)

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		logger.Error("failed to connect to entry relay", "error", err)
		return nil, err
	}

	return &EntryRelayClient{conn: conn, logger: logger}, nil
}

// ForPlayer binds the client to a player, producing the entry and bulk mint
// collaborators of a payment session.
func (c *EntryRelayClient) ForPlayer(player string) *PlayerRelay {
	return &PlayerRelay{client: c, player: player}
}

func callsValue(calls []starknet.Call) []any {
	out := make([]any, 0, len(calls))
	for _, call := range calls {
		calldata := make([]any, len(call.Calldata))
		for i, felt := range call.Calldata {
			calldata[i] = felt
		}
		out = append(out, map[string]any{
			"contractAddress": call.ContractAddress,
			"entrypoint":      call.Entrypoint,
			"calldata":        calldata,
		})
	}
	return out
}

func paymentValue(p payment.PaymentDescriptor) map[string]any {
	v := map[string]any{"paymentType": string(p.Type)}
	if p.GoldenPass != nil {
		v["goldenPass"] = map[string]any{
			"address": p.GoldenPass.Address,
			"tokenId": p.GoldenPass.TokenID,
		}
	}
	return v
}

func (c *EntryRelayClient) invoke(ctx context.Context, method string, fields map[string]any) (string, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		c.logger.Error("entry relay returned an error", "error", err, "method", method)
		return "", err
	}

	hash := resp.GetFields()["transactionHash"].GetStringValue()
	if hash == "" {
		return "", ErrRelayRejected
	}
	return hash, nil
}

// EnterDungeon asks the relay to start a game for player, running calls first
// in the same transaction.
func (c *EntryRelayClient) EnterDungeon(ctx context.Context, player string, p payment.PaymentDescriptor, calls []starknet.Call) (string, error) {
	c.logger.Info("sending enter dungeon request", "player", player, "payment_type", string(p.Type), "calls", len(calls))
	return c.invoke(ctx, EnterDungeonMethod, map[string]any{
		"player":  player,
		"payment": paymentValue(p),
		"calls":   callsValue(calls),
	})
}

// BulkMintGames asks the relay to mint count games from the player's tickets.
func (c *EntryRelayClient) BulkMintGames(ctx context.Context, player string, count int) (string, error) {
	c.logger.Info("sending bulk mint request", "player", player, "count", count)
	return c.invoke(ctx, BulkMintGamesMethod, map[string]any{
		"player": player,
		"count":  count,
	})
}

/**
 * @description
 * Close terminates the gRPC connection to the relay.
 * It should be called during graceful shutdown of the application.
 */
func (c *EntryRelayClient) Close() error {
	c.logger.Info("closing connection to entry relay")
	return c.conn.Close()
}

// PlayerRelay is an EntryRelayClient bound to one player.
type PlayerRelay struct {
	client *EntryRelayClient
	player string
}

// EnterDungeon implements payment.EntrySubmitter.
func (r *PlayerRelay) EnterDungeon(ctx context.Context, p payment.PaymentDescriptor, calls []starknet.Call) error {
	hash, err := r.client.EnterDungeon(ctx, r.player, p, calls)
	if err != nil {
		return err
	}
	r.client.logger.Info("dungeon entry submitted", "player", r.player, "transaction_hash", hash)
	return nil
}

// BulkMintGames implements payment.BulkMinter. onDone runs once the relay accepted the mint.
func (r *PlayerRelay) BulkMintGames(ctx context.Context, count int, onDone func()) error {
	hash, err := r.client.BulkMintGames(ctx, r.player, count)
	if err != nil {
		return err
	}
	r.client.logger.Info("bulk mint submitted", "player", r.player, "count", count, "transaction_hash", hash)
	if onDone != nil {
		onDone()
	}
	return nil
}
