package temporal

import (
	"time"

	"github.com/brojonat/assetxfer/service/transfer"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// AssetTransferInput contains the input parameters for an asset transfer run.
type AssetTransferInput struct {
	FromAccount string             `json:"from_account"`
	FromPIN     string             `json:"from_pin"`
	ToAccount   string             `json:"to_account"`
	ToPIN       string             `json:"to_pin"`
	Asset       transfer.AssetSpec `json:"asset"`
	Amount      uint64             `json:"amount"`
}

// AssetTransferResult contains the result of an asset transfer run.
type AssetTransferResult struct {
	Asset    *transfer.AssetResult    `json:"asset,omitempty"`
	Transfer *transfer.TransferResult `json:"transfer,omitempty"`
	Error    *string                  `json:"error,omitempty"`
}

// AssetTransferWorkflow creates an asset owned by the sender and transfers it
// to the receiver.
//
// The workflow performs these steps:
// 1. Create the asset and wait for confirmation (CreateAsset activity)
// 2. Group the receiver opt-in with the transfer and wait (TransferAsset activity)
//
// A failed asset create fails the workflow. A failed transfer completes it
// with Asset set and Error describing the failure.
//
// Activities run at most once. A timed out transaction may still confirm
// later and is never resubmitted.
func AssetTransferWorkflow(ctx workflow.Context, input AssetTransferInput) (*AssetTransferResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AssetTransferWorkflow started",
		"from", input.FromAccount,
		"to", input.ToAccount,
	)

	result := &AssetTransferResult{}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	amount := input.Amount
	if amount == 0 {
		amount = 1
	}

	var asset *transfer.AssetResult
	err := workflow.ExecuteActivity(ctx, a.CreateAsset, CreateAssetInput{
		Account: input.FromAccount,
		PIN:     input.FromPIN,
		Asset:   input.Asset,
	}).Get(ctx, &asset)
	if err != nil {
		logger.Error("failed to create asset", "error", err)
		return nil, err
	}
	result.Asset = asset

	logger.Info("created asset", "asset_index", asset.AssetIndex, "tx_id", asset.TxID)

	var xfer *transfer.TransferResult
	err = workflow.ExecuteActivity(ctx, a.TransferAsset, TransferAssetInput{
		FromAccount: input.FromAccount,
		FromPIN:     input.FromPIN,
		ToAccount:   input.ToAccount,
		ToPIN:       input.ToPIN,
		AssetIndex:  asset.AssetIndex,
		Amount:      amount,
	}).Get(ctx, &xfer)
	if err != nil {
		// The asset already exists on the ledger, so the run completes with
		// the asset and the transfer error instead of failing.
		logger.Error("failed to transfer asset", "asset_index", asset.AssetIndex, "error", err)
		errMsg := err.Error()
		result.Error = &errMsg
		return result, nil
	}
	result.Transfer = xfer

	logger.Info("AssetTransferWorkflow completed successfully",
		"asset_index", asset.AssetIndex,
		"confirmed_round", xfer.ConfirmedRound,
	)

	return result, nil
}
