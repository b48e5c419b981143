package temporal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/metrics"
	"github.com/brojonat/assetxfer/service/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateAsset(ctx context.Context, creator transfer.Account, spec transfer.AssetSpec) (*transfer.AssetResult, error) {
	args := m.Called(ctx, creator, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.AssetResult), args.Error(1)
}

func (m *MockTransferService) TransferAsset(ctx context.Context, from, to transfer.Account, assetIndex, amount uint64) (*transfer.TransferResult, error) {
	args := m.Called(ctx, from, to, assetIndex, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.TransferResult), args.Error(1)
}

func newTestActivities(svc TransferService) *Activities {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewActivities(svc, metrics.NewMetrics(prometheus.NewRegistry()), logger)
}

func TestActivities_CreateAsset(t *testing.T) {
	svc := new(MockTransferService)
	svc.On("CreateAsset", mock.Anything,
		transfer.Account{Name: "alice", PIN: "1111"},
		transfer.DefaultAssetSpec("My Asset"),
	).Return(&transfer.AssetResult{TxID: "CREATE", AssetIndex: 42, ConfirmedRound: 1003}, nil)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	activities := newTestActivities(svc)
	env.RegisterActivity(activities.CreateAsset)

	val, err := env.ExecuteActivity(activities.CreateAsset, CreateAssetInput{
		Account: "alice",
		PIN:     "1111",
		Asset:   transfer.DefaultAssetSpec("My Asset"),
	})
	require.NoError(t, err)

	var result transfer.AssetResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, uint64(42), result.AssetIndex)
	assert.Equal(t, ledger.TransactionID("CREATE"), result.TxID)
	svc.AssertExpectations(t)
}

func TestActivities_TransferAsset(t *testing.T) {
	svc := new(MockTransferService)
	svc.On("TransferAsset", mock.Anything,
		transfer.Account{Name: "alice", PIN: "1111"},
		transfer.Account{Name: "bob", PIN: "2222"},
		uint64(42), uint64(1),
	).Return(&transfer.TransferResult{AssetIndex: 42, Amount: 1, ConfirmedRound: 1006}, nil)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	activities := newTestActivities(svc)
	env.RegisterActivity(activities.TransferAsset)

	val, err := env.ExecuteActivity(activities.TransferAsset, TransferAssetInput{
		FromAccount: "alice",
		FromPIN:     "1111",
		ToAccount:   "bob",
		ToPIN:       "2222",
		AssetIndex:  42,
		Amount:      1,
	})
	require.NoError(t, err)

	var result transfer.TransferResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, uint64(1006), result.ConfirmedRound)
	svc.AssertExpectations(t)
}

func TestActivities_FailuresAreNonRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{
			name:     "rejected",
			err:      fmt.Errorf("asset create TX: %w", &ledger.RejectedError{TxID: "TX", PoolError: "overspend"}),
			wantType: "rejected",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("asset create TX: %w", &ledger.TimeoutError{TxID: "TX", TimeoutRounds: 5}),
			wantType: "timeout",
		},
		{
			name:     "node unavailable",
			err:      ledger.ErrNodeUnavailable,
			wantType: "node_unavailable",
		},
		{
			name:     "custody failure",
			err:      errors.New("custody service returned 401: invalid user password"),
			wantType: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTransferService)
			svc.On("CreateAsset", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()
			activities := newTestActivities(svc)
			env.RegisterActivity(activities.CreateAsset)

			_, err := env.ExecuteActivity(activities.CreateAsset, CreateAssetInput{Account: "alice"})
			require.Error(t, err)

			var appErr *temporalsdk.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.True(t, appErr.NonRetryable())
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.True(t, strings.Contains(err.Error(), "create asset failed"))
		})
	}
}

func TestTerminal_ContextErrorsPassThrough(t *testing.T) {
	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(ctxErr.Error(), func(t *testing.T) {
			err := terminal(fmt.Errorf("wait: %w", ctxErr))
			assert.ErrorIs(t, err, ctxErr)
			assert.Equal(t, "cancelled", ledger.Outcome(err))

			var appErr *temporalsdk.ApplicationError
			assert.False(t, errors.As(err, &appErr))
		})
	}
}

func TestActivities_RecordsDuration(t *testing.T) {
	svc := new(MockTransferService)
	svc.On("CreateAsset", mock.Anything, mock.Anything, mock.Anything).
		Return(&transfer.AssetResult{TxID: "CREATE", AssetIndex: 42}, nil).Once()
	svc.On("CreateAsset", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ledger.ErrNodeUnavailable).Once()

	registry := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	activities := NewActivities(svc, metrics.NewMetrics(registry), logger)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(activities.CreateAsset)

	_, err := env.ExecuteActivity(activities.CreateAsset, CreateAssetInput{Account: "alice"})
	require.NoError(t, err)
	_, err = env.ExecuteActivity(activities.CreateAsset, CreateAssetInput{Account: "alice"})
	require.Error(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	counts := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "transfer_workflow_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["activity"]+"/"+labels["status"]] = m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), counts["CreateAsset/success"])
	assert.Equal(t, uint64(1), counts["CreateAsset/error"])
}

func TestClient_TaskQueue(t *testing.T) {
	c := &Client{taskQueue: "assetxfer-transfers"}
	assert.Equal(t, "assetxfer-transfers", c.TaskQueue())
}

func TestWorkflowID(t *testing.T) {
	id := workflowID()
	assert.True(t, strings.HasPrefix(id, "asset-transfer-"))
	assert.NotEqual(t, id, workflowID())
}
