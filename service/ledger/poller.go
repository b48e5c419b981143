package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/assetxfer/service/metrics"
)

// DefaultTimeoutRounds is the number of rounds WaitForConfirmation waits
// when the caller does not specify a budget.
const DefaultTimeoutRounds = 5

// Poller waits for submitted transactions to reach a terminal state.
// It holds no per-call state, so a single Poller can serve concurrent calls.
type Poller struct {
	node    Node
	network string // label for logs and metrics, e.g. "algorand-testnet"
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPoller creates a Poller backed by the given node.
// If m is nil, no metrics will be recorded.
func NewPoller(node Node, network string, m *metrics.Metrics, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		node:    node,
		network: network,
		metrics: m,
		logger:  logger,
	}
}

// WaitForConfirmation blocks until txID is confirmed, rejected by the
// transaction pool, or timeoutRounds ledger rounds have passed.
//
// The budget is counted in rounds produced by the node, not wall-clock time.
// Each wait between polls is a WaitForRound call against the node. The
// context is checked before every poll so callers can abandon the wait.
//
// Failures are terminal: ErrNodeUnavailable, *RejectedError or *TimeoutError.
// Errors from the node are returned wrapped and are not retried here.
func (p *Poller) WaitForConfirmation(ctx context.Context, txID TransactionID, timeoutRounds int) (*PendingInfo, error) {
	if timeoutRounds <= 0 {
		timeoutRounds = DefaultTimeoutRounds
	}
	budget := uint64(timeoutRounds)

	status, err := p.node.Status(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNodeUnavailable, err)
		p.record(err, 0)
		return nil, err
	}
	if status == nil {
		p.record(ErrNodeUnavailable, 0)
		return nil, ErrNodeUnavailable
	}

	startRound := status.LastRound + 1
	currentRound := startRound

	p.logger.DebugContext(ctx, "waiting for confirmation",
		"tx_id", txID,
		"network", p.network,
		"start_round", startRound,
		"timeout_rounds", budget,
	)

	for currentRound < startRound+budget {
		if err := ctx.Err(); err != nil {
			p.record(err, currentRound-startRound)
			return nil, err
		}

		info, err := p.node.PendingTransaction(ctx, txID)
		if err != nil {
			p.record(err, currentRound-startRound)
			return nil, fmt.Errorf("failed to get pending transaction %s: %w", txID, err)
		}

		if info.Confirmed() {
			p.logger.InfoContext(ctx, "transaction confirmed",
				"tx_id", txID,
				"network", p.network,
				"confirmed_round", info.ConfirmedRound,
			)
			p.record(nil, currentRound-startRound)
			return info, nil
		}

		if info.Rejected() {
			rejected := &RejectedError{TxID: txID, PoolError: info.PoolError}
			p.logger.WarnContext(ctx, "transaction rejected",
				"tx_id", txID,
				"network", p.network,
				"pool_error", info.PoolError,
			)
			p.record(rejected, currentRound-startRound)
			return nil, rejected
		}

		p.logger.DebugContext(ctx, "transaction still pending",
			"tx_id", txID,
			"round", currentRound,
		)

		if err := p.node.WaitForRound(ctx, currentRound); err != nil {
			p.record(err, currentRound-startRound)
			return nil, fmt.Errorf("failed waiting for round %d: %w", currentRound, err)
		}
		currentRound++
	}

	timeout := &TimeoutError{TxID: txID, TimeoutRounds: budget}
	p.logger.WarnContext(ctx, "transaction not confirmed in time",
		"tx_id", txID,
		"network", p.network,
		"timeout_rounds", budget,
	)
	p.record(timeout, budget)
	return nil, timeout
}

func (p *Poller) record(err error, roundsWaited uint64) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordConfirmation(p.network, Outcome(err), float64(roundsWaited))
}
