package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/metrics"
	"github.com/brojonat/assetxfer/service/transfer"
	"go.temporal.io/sdk/activity"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// heartbeatInterval must stay below the HeartbeatTimeout in the workflow's
// activity options.
const heartbeatInterval = 20 * time.Second

// CreateAssetInput contains parameters for the CreateAsset activity.
// PINs travel in workflow history; run the worker with a payload codec when
// that history is not trusted.
type CreateAssetInput struct {
	Account string             `json:"account"`
	PIN     string             `json:"pin"`
	Asset   transfer.AssetSpec `json:"asset"`
}

// TransferAssetInput contains parameters for the TransferAsset activity.
type TransferAssetInput struct {
	FromAccount string `json:"from_account"`
	FromPIN     string `json:"from_pin"`
	ToAccount   string `json:"to_account"`
	ToPIN       string `json:"to_pin"`
	AssetIndex  uint64 `json:"asset_index"`
	Amount      uint64 `json:"amount"`
}

// TransferService defines the transfer operations needed by activities.
// This allows for easy mocking in tests.
type TransferService interface {
	CreateAsset(ctx context.Context, creator transfer.Account, spec transfer.AssetSpec) (*transfer.AssetResult, error)
	TransferAsset(ctx context.Context, from, to transfer.Account, assetIndex, amount uint64) (*transfer.TransferResult, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	service TransferService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(service TransferService, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// CreateAsset creates the asset and waits for its confirmation.
func (a *Activities) CreateAsset(ctx context.Context, input CreateAssetInput) (result *transfer.AssetResult, err error) {
	defer metrics.Timer(time.Now(), func(duration float64) {
		a.record("CreateAsset", err, duration)
	})()

	stop := a.heartbeat(ctx, "waiting for asset create confirmation")
	defer stop()

	a.logger.InfoContext(ctx, "creating asset",
		"account", input.Account,
		"asset_name", input.Asset.Name,
	)

	result, err = a.service.CreateAsset(ctx,
		transfer.Account{Name: input.Account, PIN: input.PIN},
		input.Asset,
	)
	if err != nil {
		return nil, terminal(fmt.Errorf("create asset failed: %w", err))
	}
	return result, nil
}

// TransferAsset submits the grouped opt-in and transfer and waits for confirmation.
func (a *Activities) TransferAsset(ctx context.Context, input TransferAssetInput) (result *transfer.TransferResult, err error) {
	defer metrics.Timer(time.Now(), func(duration float64) {
		a.record("TransferAsset", err, duration)
	})()

	stop := a.heartbeat(ctx, "waiting for transfer confirmation")
	defer stop()

	a.logger.InfoContext(ctx, "transferring asset",
		"from", input.FromAccount,
		"to", input.ToAccount,
		"asset_index", input.AssetIndex,
		"amount", input.Amount,
	)

	result, err = a.service.TransferAsset(ctx,
		transfer.Account{Name: input.FromAccount, PIN: input.FromPIN},
		transfer.Account{Name: input.ToAccount, PIN: input.ToPIN},
		input.AssetIndex,
		input.Amount,
	)
	if err != nil {
		return nil, terminal(fmt.Errorf("transfer asset failed: %w", err))
	}
	return result, nil
}

// heartbeat records activity heartbeats until the returned func is called.
func (a *Activities) heartbeat(ctx context.Context, details string) func() {
	heartbeatCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, details)
			}
		}
	}()
	return cancel
}

func (a *Activities) record(activityName string, err error, duration float64) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordActivityDuration(activityName, err, duration)
}

// terminal marks confirmation failures as non-retryable. Cancellation and
// deadline expiry are returned as is.
func terminal(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return temporalsdk.NewNonRetryableApplicationError(err.Error(), ledger.Outcome(err), err)
}
