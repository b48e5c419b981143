package algorand

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/metrics"
)

// Client provides ledger operations against an algod node.
// It implements ledger.Node so it can back the confirmation poller, and adds
// the submission calls the transfer flow needs.
type Client struct {
	api     AlgodAPI
	network string // network label for logs and metrics (e.g. "algorand-testnet")
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ ledger.Node = (*Client)(nil)

// NewClient creates a new algod client.
// If metrics is nil, no metrics will be recorded.
func NewClient(api AlgodAPI, network string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		network: network,
		metrics: m,
		logger:  logger,
	}
}

// Network returns the label this client reports under.
func (c *Client) Network() string {
	return c.network
}

// Status returns the node's last round. A zero-valued response from the node
// is reported as a nil status (no data).
func (c *Client) Status(ctx context.Context) (*ledger.NodeStatus, error) {
	start := time.Now()
	status, err := c.api.Status(ctx)
	c.recordCall("Status", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get node status", "error", err)
		return nil, err
	}
	if status.LastRound == 0 && status.LastVersion == "" {
		return nil, nil
	}
	return &ledger.NodeStatus{LastRound: status.LastRound}, nil
}

// PendingTransaction returns the processing state of a transaction. A 404
// from the node means it has not seen the transaction yet and is reported as
// a nil result.
func (c *Client) PendingTransaction(ctx context.Context, txID ledger.TransactionID) (*ledger.PendingInfo, error) {
	start := time.Now()
	resp, err := c.api.PendingTransactionInformation(ctx, txID.String())
	c.recordCall("PendingTransactionInformation", err, start)
	if err != nil {
		if isNotFound(err) {
			c.logger.DebugContext(ctx, "pending transaction not found", "tx_id", txID)
			return nil, nil
		}
		return nil, err
	}
	return pendingToDomain(txID, resp), nil
}

// WaitForRound blocks until the node reports the given round.
func (c *Client) WaitForRound(ctx context.Context, round uint64) error {
	start := time.Now()
	_, err := c.api.StatusAfterBlock(ctx, round)
	c.recordCall("StatusAfterBlock", err, start)
	return err
}

// SubmitRawTransaction broadcasts one or more concatenated signed transactions
// and returns the id of the first one.
func (c *Client) SubmitRawTransaction(ctx context.Context, raw []byte) (ledger.TransactionID, error) {
	start := time.Now()
	txID, err := c.api.SendRawTransaction(ctx, raw)
	c.recordCall("SendRawTransaction", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to submit transaction",
			"bytes", len(raw),
			"error", err,
		)
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}
	c.logger.InfoContext(ctx, "submitted transaction", "tx_id", txID, "network", c.network)
	return ledger.TransactionID(txID), nil
}

// SuggestedParams returns the parameters new transactions should be built with.
func (c *Client) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	start := time.Now()
	sp, err := c.api.SuggestedParams(ctx)
	c.recordCall("SuggestedParams", err, start)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("failed to get suggested params: %w", err)
	}
	return sp, nil
}

// PendingTransactionsByAddress returns the ids of transactions still in the
// pool for an address.
func (c *Client) PendingTransactionsByAddress(ctx context.Context, address string) ([]ledger.TransactionID, error) {
	start := time.Now()
	txns, err := c.api.PendingTransactionsByAddress(ctx, address)
	c.recordCall("PendingTransactionsByAddress", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transactions for %s: %w", address, err)
	}
	ids := make([]ledger.TransactionID, 0, len(txns))
	for _, stxn := range txns {
		ids = append(ids, ledger.TransactionID(TxID(stxn.Txn)))
	}
	return ids, nil
}

func (c *Client) recordCall(method string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil && !isNotFound(err) {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.network, time.Since(start).Seconds())
}

func pendingToDomain(txID ledger.TransactionID, resp models.PendingTransactionInfoResponse) *ledger.PendingInfo {
	info := &ledger.PendingInfo{
		TxID:           txID,
		ConfirmedRound: resp.ConfirmedRound,
		PoolError:      resp.PoolError,
		AssetIndex:     resp.AssetIndex,
	}
	if !resp.Transaction.Txn.Sender.IsZero() {
		info.Sender = resp.Transaction.Txn.Sender.String()
	}
	return info
}

// isNotFound reports whether algod answered 404. The SDK's common.NotFound
// is an interface conversion, not a distinct type, so errors.As cannot match
// it; its message always starts with "HTTP 404".
func isNotFound(err error) bool {
	return strings.HasPrefix(err.Error(), "HTTP 404")
}
