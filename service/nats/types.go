package nats

import (
	"errors"
	"time"

	"github.com/brojonat/assetxfer/service/ledger"
)

// ConfirmationEvent represents the end of a confirmation wait.
// This is published to the subject "confirmations.{network}.{tx_id}" in JetStream.
type ConfirmationEvent struct {
	TxID    string `json:"tx_id"`
	Network string `json:"network"`
	Outcome string `json:"outcome"` // one of the ledger.Outcome values

	// Set when the transaction was confirmed
	ConfirmedRound uint64 `json:"confirmed_round,omitempty"`
	AssetIndex     uint64 `json:"asset_index,omitempty"`

	// Set on failure
	PoolError     string `json:"pool_error,omitempty"`
	TimeoutRounds uint64 `json:"timeout_rounds,omitempty"`
	Error         string `json:"error,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// FromOutcome builds an event from the result of ledger.Poller.WaitForConfirmation.
func FromOutcome(network string, txID ledger.TransactionID, info *ledger.PendingInfo, err error) *ConfirmationEvent {
	event := &ConfirmationEvent{
		TxID:        txID.String(),
		Network:     network,
		Outcome:     ledger.Outcome(err),
		PublishedAt: time.Now().UTC(),
	}

	if err != nil {
		event.Error = err.Error()
		var rejected *ledger.RejectedError
		if errors.As(err, &rejected) {
			event.PoolError = rejected.PoolError
		}
		var timeout *ledger.TimeoutError
		if errors.As(err, &timeout) {
			event.TimeoutRounds = timeout.TimeoutRounds
		}
		return event
	}

	if info != nil {
		event.ConfirmedRound = info.ConfirmedRound
		event.AssetIndex = info.AssetIndex
	}
	return event
}

// Subject returns the subject the event is published to.
func (e *ConfirmationEvent) Subject() string {
	return SubjectPrefix + "." + e.Network + "." + e.TxID
}
