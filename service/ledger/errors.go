package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNodeUnavailable is returned when the node status query yields no data.
	ErrNodeUnavailable = errors.New("unable to get node status")

	// ErrTransactionRejected matches any *RejectedError.
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrConfirmationTimeout matches any *TimeoutError.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// RejectedError is returned when the ledger's transaction pool rejected a
// transaction before it could be confirmed.
type RejectedError struct {
	TxID      TransactionID
	PoolError string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction rejected: pool error: %s", e.PoolError)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrTransactionRejected
}

// TimeoutError is returned when the round budget ran out while the
// transaction was still pending.
type TimeoutError struct {
	TxID          TransactionID
	TimeoutRounds uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pending tx not found in timeout rounds, timeout value = %d", e.TimeoutRounds)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrConfirmationTimeout
}

// Outcome classifies the result of a confirmation attempt for logging,
// metrics and event publishing.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrTransactionRejected):
		return "rejected"
	case errors.Is(err, ErrConfirmationTimeout):
		return "timeout"
	case errors.Is(err, ErrNodeUnavailable):
		return "node_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
