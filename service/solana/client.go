package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client exposes a Solana RPC node as a ledger.Node so the confirmation
// poller can wait on transaction signatures. Slots play the role of rounds.
type Client struct {
	rpc      RPCClient
	slots    SlotSubscriber
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

var _ ledger.Node = (*Client)(nil)

// NewClient creates a new Solana client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, slots SlotSubscriber, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:      rpcClient,
		slots:    slots,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// Status returns the latest finalized slot as the node's last round.
func (c *Client) Status(ctx context.Context) (*ledger.NodeStatus, error) {
	slot, err := c.finalizedSlot(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get slot", "error", err)
		return nil, err
	}
	return &ledger.NodeStatus{LastRound: slot}, nil
}

// PendingTransaction maps a signature status onto PendingInfo: a finalized
// status is confirmed at its slot, a status carrying an error is rejected,
// anything else is still pending.
func (c *Client) PendingTransaction(ctx context.Context, txID ledger.TransactionID) (*ledger.PendingInfo, error) {
	sig, err := solana.SignatureFromBase58(txID.String())
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", txID, err)
	}

	start := time.Now()
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	c.recordCall("GetSignatureStatuses", err, start)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		c.logger.DebugContext(ctx, "signature status unknown", "signature", txID)
		return nil, nil
	}

	status := out.Value[0]
	info := &ledger.PendingInfo{TxID: txID}
	if status.Err != nil {
		info.PoolError = fmt.Sprintf("%v", status.Err)
		return info, nil
	}
	if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
		info.ConfirmedRound = status.Slot
	}
	return info, nil
}

// WaitForRound blocks until the given slot is finalized, the same commitment
// Status reports. Slot notifications arrive at processed commitment, so each
// one at or past the target triggers a check of the finalized slot.
func (c *Client) WaitForRound(ctx context.Context, round uint64) error {
	start := time.Now()
	finalized, err := c.finalizedSlot(ctx)
	if err != nil {
		return err
	}
	if finalized >= round {
		return nil
	}

	stream, err := c.slots.SubscribeSlots(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		slot, err := stream.Recv(ctx)
		if err != nil {
			return fmt.Errorf("slot subscription failed: %w", err)
		}
		if slot < round {
			continue
		}
		finalized, err := c.finalizedSlot(ctx)
		if err != nil {
			return err
		}
		if finalized >= round {
			c.logger.DebugContext(ctx, "slot finalized",
				"finalized_slot", finalized,
				"processed_slot", slot,
				"target", round,
				"waited_seconds", time.Since(start).Seconds(),
			)
			return nil
		}
	}
}

func (c *Client) finalizedSlot(ctx context.Context) (uint64, error) {
	start := time.Now()
	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentFinalized)
	c.recordCall("GetSlot", err, start)
	return slot, err
}

func (c *Client) recordCall(method string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}
