package temporal

import (
	"errors"
	"testing"

	"github.com/brojonat/assetxfer/service/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func testInput() AssetTransferInput {
	return AssetTransferInput{
		FromAccount: "alice",
		FromPIN:     "1111",
		ToAccount:   "bob",
		ToPIN:       "2222",
		Asset:       transfer.DefaultAssetSpec("My Asset"),
	}
}

func TestAssetTransferWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		mockActivities func(createMock, transferMock *testsuite.MockCallWrapper)
		expectedError  bool
		transferCalls  int
		validateResult func(*testing.T, *AssetTransferResult)
	}{
		{
			name: "creates and transfers",
			mockActivities: func(createMock, transferMock *testsuite.MockCallWrapper) {
				createMock.Return(&transfer.AssetResult{TxID: "CREATE", AssetIndex: 42, ConfirmedRound: 1003}, nil)
				transferMock.Return(&transfer.TransferResult{TransferTxID: "XFER", AssetIndex: 42, Amount: 1, ConfirmedRound: 1006}, nil)
			},
			transferCalls: 1,
			validateResult: func(t *testing.T, result *AssetTransferResult) {
				require.NotNil(t, result.Asset)
				require.NotNil(t, result.Transfer)
				assert.Equal(t, uint64(42), result.Asset.AssetIndex)
				assert.Equal(t, uint64(1006), result.Transfer.ConfirmedRound)
				assert.Nil(t, result.Error)
			},
		},
		{
			name: "create rejected stops the workflow",
			mockActivities: func(createMock, transferMock *testsuite.MockCallWrapper) {
				createMock.Return(nil, temporalsdk.NewNonRetryableApplicationError(
					"transaction rejected: pool error: overspend", "rejected", nil))
			},
			expectedError: true,
			transferCalls: 0,
		},
		{
			name: "transfer times out",
			mockActivities: func(createMock, transferMock *testsuite.MockCallWrapper) {
				createMock.Return(&transfer.AssetResult{TxID: "CREATE", AssetIndex: 42}, nil)
				transferMock.Return(nil, temporalsdk.NewNonRetryableApplicationError(
					"pending tx not found in timeout rounds, timeout value = 5", "timeout", nil))
			},
			transferCalls: 1,
			validateResult: func(t *testing.T, result *AssetTransferResult) {
				require.NotNil(t, result.Asset, "created asset is reported")
				assert.Equal(t, uint64(42), result.Asset.AssetIndex)
				assert.Nil(t, result.Transfer)
				require.NotNil(t, result.Error)
				assert.Contains(t, *result.Error, "timeout value = 5")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			activities := &Activities{}
			env.RegisterActivity(activities.CreateAsset)
			env.RegisterActivity(activities.TransferAsset)

			transferCalls := 0
			createMock := env.OnActivity(activities.CreateAsset, mock.Anything, mock.Anything)
			transferMock := env.OnActivity(activities.TransferAsset, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { transferCalls++ })
			tt.mockActivities(createMock, transferMock)

			env.ExecuteWorkflow(AssetTransferWorkflow, testInput())

			require.True(t, env.IsWorkflowCompleted())
			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())
			} else {
				require.NoError(t, env.GetWorkflowError())
				var result AssetTransferResult
				require.NoError(t, env.GetWorkflowResult(&result))
				tt.validateResult(t, &result)
			}
			assert.Equal(t, tt.transferCalls, transferCalls)
		})
	}
}

func TestAssetTransferWorkflow_PassesInputs(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.CreateAsset)
	env.RegisterActivity(activities.TransferAsset)

	env.OnActivity(activities.CreateAsset, mock.Anything, mock.MatchedBy(func(in CreateAssetInput) bool {
		return in.Account == "alice" && in.PIN == "1111" && in.Asset.Name == "My Asset" && in.Asset.Total == 1
	})).Return(&transfer.AssetResult{AssetIndex: 42}, nil).Once()

	env.OnActivity(activities.TransferAsset, mock.Anything, mock.MatchedBy(func(in TransferAssetInput) bool {
		return in.FromAccount == "alice" && in.ToAccount == "bob" && in.ToPIN == "2222" &&
			in.AssetIndex == 42 && in.Amount == 1
	})).Return(&transfer.TransferResult{AssetIndex: 42, Amount: 1}, nil).Once()

	env.ExecuteWorkflow(AssetTransferWorkflow, testInput())

	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestAssetTransferWorkflow_NoActivityRetries(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.CreateAsset)
	env.RegisterActivity(activities.TransferAsset)

	callCount := 0
	env.OnActivity(activities.CreateAsset, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { callCount++ }).
		Return(nil, errors.New("node unavailable"))

	env.ExecuteWorkflow(AssetTransferWorkflow, testInput())

	assert.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, callCount)
}
