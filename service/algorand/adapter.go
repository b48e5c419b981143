package algorand

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// DefaultTokenHeader is the header algod expects the API token in.
// Hosted providers often want a different one (e.g. "X-API-Key").
const DefaultTokenHeader = "X-Algo-API-Token"

// AlgodAPI is an interface for the algod operations we need.
// This allows us to mock the node in tests without hitting a real network.
type AlgodAPI interface {
	Status(ctx context.Context) (models.NodeStatus, error)
	StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error)
	PendingTransactionInformation(ctx context.Context, txID string) (models.PendingTransactionInfoResponse, error)
	PendingTransactionsByAddress(ctx context.Context, address string) ([]types.SignedTxn, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
}

// realAlgodClient adapts the go-algorand-sdk client to our AlgodAPI interface.
// The SDK exposes request builders; flattening them here keeps the rest of
// the package easy to test.
type realAlgodClient struct {
	client *algod.Client
}

// NewAlgodAPI creates an AlgodAPI talking to the node at address.
// The token is sent in tokenHeader, which defaults to X-Algo-API-Token.
func NewAlgodAPI(address, token, tokenHeader string) (AlgodAPI, error) {
	var (
		c   *algod.Client
		err error
	)
	if tokenHeader == "" || tokenHeader == DefaultTokenHeader {
		c, err = algod.MakeClient(address, token)
	} else {
		c, err = algod.MakeClientWithHeaders(address, "", []*common.Header{
			{Key: tokenHeader, Value: token},
		})
	}
	if err != nil {
		return nil, err
	}
	return &realAlgodClient{client: c}, nil
}

func (r *realAlgodClient) Status(ctx context.Context) (models.NodeStatus, error) {
	return r.client.Status().Do(ctx)
}

func (r *realAlgodClient) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	return r.client.StatusAfterBlock(round).Do(ctx)
}

func (r *realAlgodClient) PendingTransactionInformation(ctx context.Context, txID string) (models.PendingTransactionInfoResponse, error) {
	info, _, err := r.client.PendingTransactionInformation(txID).Do(ctx)
	return info, err
}

func (r *realAlgodClient) PendingTransactionsByAddress(ctx context.Context, address string) ([]types.SignedTxn, error) {
	_, txns, err := r.client.PendingTransactionsByAddress(address).Do(ctx)
	return txns, err
}

func (r *realAlgodClient) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return r.client.SendRawTransaction(raw).Do(ctx)
}

func (r *realAlgodClient) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return r.client.SuggestedParams().Do(ctx)
}
