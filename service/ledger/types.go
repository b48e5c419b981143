package ledger

import (
	"context"
)

// TransactionID identifies a transaction submitted to a ledger node.
type TransactionID string

func (id TransactionID) String() string {
	return string(id)
}

// NodeStatus is a snapshot of a ledger node's progress.
type NodeStatus struct {
	LastRound uint64 `json:"last_round"`
}

// PendingInfo is a snapshot of a submitted transaction's processing state.
// It is fetched fresh on every poll and never mutated by the poller.
type PendingInfo struct {
	TxID           TransactionID `json:"tx_id"`
	ConfirmedRound uint64        `json:"confirmed_round,omitempty"` // 0 while pending
	PoolError      string        `json:"pool_error,omitempty"`      // set when the pool rejected the txn
	AssetIndex     uint64        `json:"asset_index,omitempty"`     // asset created by this txn, if any
	Sender         string        `json:"sender,omitempty"`
}

// Confirmed reports whether the transaction was finalized in a round.
func (p *PendingInfo) Confirmed() bool {
	return p != nil && p.ConfirmedRound > 0
}

// Rejected reports whether the ledger's transaction pool rejected the transaction.
func (p *PendingInfo) Rejected() bool {
	return p != nil && p.PoolError != ""
}

// Node is the subset of a ledger node client the confirmation poller depends on.
type Node interface {
	// Status returns the node's current status. A nil status with a nil
	// error means the node returned no data.
	Status(ctx context.Context) (*NodeStatus, error)

	// PendingTransaction returns the processing state of a transaction.
	// A nil result means the node knows nothing about it yet.
	PendingTransaction(ctx context.Context, txID TransactionID) (*PendingInfo, error)

	// WaitForRound blocks until the node has produced the given round.
	WaitForRound(ctx context.Context, round uint64) error
}
