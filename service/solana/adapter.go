package solana

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// SlotSubscriber opens a stream of slot notifications.
type SlotSubscriber interface {
	SubscribeSlots(ctx context.Context) (SlotStream, error)
}

// SlotStream yields slots as the validator processes them.
type SlotStream interface {
	Recv(ctx context.Context) (uint64, error)
	Close()
}

// realRPCClient adapts the actual solana-go RPC client to our RPCClient interface.
type realRPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a new RPCClient that wraps the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
	}
}

func (r *realRPCClient) GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return r.client.GetSlot(ctx, commitment)
}

func (r *realRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solana.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	return r.client.GetSignatureStatuses(ctx, searchTransactionHistory, signatures...)
}

// wsSlotSubscriber opens a websocket connection per subscription.
type wsSlotSubscriber struct {
	wsURL string
}

// NewSlotSubscriber creates a SlotSubscriber backed by the node's websocket endpoint.
func NewSlotSubscriber(wsURL string) SlotSubscriber {
	return &wsSlotSubscriber{wsURL: wsURL}
}

func (s *wsSlotSubscriber) SubscribeSlots(ctx context.Context) (SlotStream, error) {
	conn, err := ws.Connect(ctx, s.wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.wsURL, err)
	}
	sub, err := conn.SlotSubscribe()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to slots: %w", err)
	}
	return &wsSlotStream{conn: conn, sub: sub}, nil
}

type wsSlotStream struct {
	conn *ws.Client
	sub  *ws.SlotSubscription
}

func (s *wsSlotStream) Recv(ctx context.Context) (uint64, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		return 0, err
	}
	return res.Slot, nil
}

func (s *wsSlotStream) Close() {
	s.sub.Unsubscribe()
	s.conn.Close()
}

// WSURLFromRPC derives the websocket endpoint from an HTTP RPC endpoint.
func WSURLFromRPC(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}
