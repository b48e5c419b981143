package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/brojonat/assetxfer/service/algorand"
	"github.com/brojonat/assetxfer/service/custody"
	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/nats"
)

// Custody resolves users and signs transactions on their behalf.
type Custody interface {
	GetUser(ctx context.Context, account string) (*custody.User, error)
	Sign(ctx context.Context, p custody.SignParams) (*custody.SignResponse, error)
}

// Ledger is the subset of the algod client the transfer flow submits through.
type Ledger interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SubmitRawTransaction(ctx context.Context, raw []byte) (ledger.TransactionID, error)
	PendingTransactionsByAddress(ctx context.Context, address string) ([]ledger.TransactionID, error)
}

// Confirmer waits for a submitted transaction to reach a terminal state.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, txID ledger.TransactionID, timeoutRounds int) (*ledger.PendingInfo, error)
}

// Account is a custody account name and the PIN that unlocks its key.
type Account struct {
	Name string `json:"name"`
	PIN  string `json:"-"`
}

// Party is an Account resolved to its chain address.
type Party struct {
	Account
	Address      string `json:"address"`
	ChainNetwork string `json:"chain_network"`
}

// AssetSpec describes the asset to create. The creator is filled in from the
// signing account.
type AssetSpec struct {
	Name     string `json:"name"`
	UnitName string `json:"unit_name,omitempty"`
	URL      string `json:"url,omitempty"`
	Total    uint64 `json:"total"`
	Decimals uint32 `json:"decimals"`
}

// DefaultAssetSpec is a single indivisible unit.
func DefaultAssetSpec(name string) AssetSpec {
	return AssetSpec{Name: name, Total: 1, Decimals: 0}
}

// AssetResult is the outcome of CreateAsset.
type AssetResult struct {
	TxID           ledger.TransactionID `json:"tx_id"`
	AssetIndex     uint64               `json:"asset_index"`
	ConfirmedRound uint64               `json:"confirmed_round"`
	Creator        string               `json:"creator"`
}

// TransferResult is the outcome of TransferAsset.
type TransferResult struct {
	OptInTxID      ledger.TransactionID   `json:"opt_in_tx_id"`
	TransferTxID   ledger.TransactionID   `json:"transfer_tx_id"`
	ConfirmedRound uint64                 `json:"confirmed_round"`
	AssetIndex     uint64                 `json:"asset_index"`
	Amount         uint64                 `json:"amount"`
	PendingTxIDs   []ledger.TransactionID `json:"pending_tx_ids"`
}

// Result is the outcome of Run.
type Result struct {
	Asset    *AssetResult    `json:"asset"`
	Transfer *TransferResult `json:"transfer"`
}

// Params are the inputs of a full create-and-transfer run.
type Params struct {
	From   Account
	To     Account
	Asset  AssetSpec
	Amount uint64
}

// Service runs the custodial asset create and transfer flow.
type Service struct {
	custody       Custody
	ledger        Ledger
	confirmer     Confirmer
	publisher     nats.Publisher
	network       string
	timeoutRounds int
	logger        *slog.Logger
}

// NewService creates a transfer Service. publisher may be nil, in which case
// confirmation outcomes are only logged. timeoutRounds <= 0 uses
// ledger.DefaultTimeoutRounds.
func NewService(c Custody, l Ledger, confirmer Confirmer, publisher nats.Publisher, network string, timeoutRounds int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeoutRounds <= 0 {
		timeoutRounds = ledger.DefaultTimeoutRounds
	}
	return &Service{
		custody:       c,
		ledger:        l,
		confirmer:     confirmer,
		publisher:     publisher,
		network:       network,
		timeoutRounds: timeoutRounds,
		logger:        logger,
	}
}

// Resolve looks up the primary chain account of a custody user.
func (s *Service) Resolve(ctx context.Context, account Account) (*Party, error) {
	user, err := s.custody.GetUser(ctx, account.Name)
	if err != nil {
		return nil, err
	}
	perm, err := user.Primary()
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.Name, err)
	}
	return &Party{
		Account:      account,
		Address:      perm.ChainAccount,
		ChainNetwork: perm.ChainNetwork,
	}, nil
}

// CreateAsset creates a new asset owned by the creator's chain account and
// waits for it to be confirmed.
func (s *Service) CreateAsset(ctx context.Context, creator Account, spec AssetSpec) (*AssetResult, error) {
	party, err := s.Resolve(ctx, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve creator: %w", err)
	}

	sp, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	txn, err := algorand.BuildAssetCreate(algorand.AssetParams{
		Creator:   party.Address,
		Total:     spec.Total,
		Decimals:  spec.Decimals,
		UnitName:  spec.UnitName,
		AssetName: spec.Name,
		URL:       spec.URL,
	}, sp)
	if err != nil {
		return nil, err
	}

	raw, err := s.sign(ctx, party, party.ChainNetwork, txn)
	if err != nil {
		return nil, err
	}

	txID, err := s.ledger.SubmitRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}

	info, err := s.confirm(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("asset create %s: %w", txID, err)
	}

	s.logger.InfoContext(ctx, "created asset",
		"asset_index", info.AssetIndex,
		"tx_id", txID,
		"creator", party.Address,
	)

	return &AssetResult{
		TxID:           txID,
		AssetIndex:     info.AssetIndex,
		ConfirmedRound: info.ConfirmedRound,
		Creator:        party.Address,
	}, nil
}

// TransferAsset moves amount units of an asset from one account to another.
// The receiver's opt-in and the transfer are grouped so both confirm or
// neither does. Each transaction is signed by its own sender; the network of
// the sender's primary permission is used for both.
func (s *Service) TransferAsset(ctx context.Context, from, to Account, assetIndex, amount uint64) (*TransferResult, error) {
	sender, err := s.Resolve(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender: %w", err)
	}
	receiver, err := s.Resolve(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receiver: %w", err)
	}

	sp, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	optIn, err := algorand.BuildOptIn(receiver.Address, assetIndex, sp)
	if err != nil {
		return nil, err
	}
	xfer, err := algorand.BuildTransfer(sender.Address, receiver.Address, amount, assetIndex, sp)
	if err != nil {
		return nil, err
	}
	grouped, err := algorand.GroupTransactions(optIn, xfer)
	if err != nil {
		return nil, err
	}

	signedOptIn, err := s.sign(ctx, receiver, sender.ChainNetwork, grouped[0])
	if err != nil {
		return nil, err
	}
	signedXfer, err := s.sign(ctx, sender, sender.ChainNetwork, grouped[1])
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, len(signedOptIn)+len(signedXfer))
	raw = append(raw, signedOptIn...)
	raw = append(raw, signedXfer...)

	txID, err := s.ledger.SubmitRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}

	info, err := s.confirm(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("asset transfer %s: %w", txID, err)
	}

	pending, err := s.ledger.PendingTransactionsByAddress(ctx, receiver.Address)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list pending transactions",
			"address", receiver.Address,
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "transferred asset",
		"asset_index", assetIndex,
		"amount", amount,
		"from", sender.Address,
		"to", receiver.Address,
		"confirmed_round", info.ConfirmedRound,
	)

	return &TransferResult{
		OptInTxID:      ledger.TransactionID(algorand.TxID(grouped[0])),
		TransferTxID:   ledger.TransactionID(algorand.TxID(grouped[1])),
		ConfirmedRound: info.ConfirmedRound,
		AssetIndex:     assetIndex,
		Amount:         amount,
		PendingTxIDs:   pending,
	}, nil
}

// Run creates an asset owned by p.From and transfers p.Amount of it to p.To.
func (s *Service) Run(ctx context.Context, p Params) (*Result, error) {
	if p.Amount == 0 {
		p.Amount = 1
	}

	asset, err := s.CreateAsset(ctx, p.From, p.Asset)
	if err != nil {
		return nil, err
	}

	xfer, err := s.TransferAsset(ctx, p.From, p.To, asset.AssetIndex, p.Amount)
	if err != nil {
		return &Result{Asset: asset}, err
	}

	return &Result{Asset: asset, Transfer: xfer}, nil
}

// sign has the custody service sign txn with the party's key and returns
// the encoded signed transaction ready for submission.
func (s *Service) sign(ctx context.Context, party *Party, chainNetwork string, txn types.Transaction) ([]byte, error) {
	resp, err := s.custody.Sign(ctx, custody.SignParams{
		Account:      party.Name,
		ChainAccount: party.Address,
		ChainNetwork: chainNetwork,
		Transaction:  algorand.EncodeUnsigned(txn),
		UserPassword: party.PIN,
	})
	if err != nil {
		return nil, err
	}
	sig, err := resp.Signature()
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", party.Name, err)
	}
	return algorand.EncodeSigned(txn, sig)
}

// confirm waits for txID and publishes the outcome.
func (s *Service) confirm(ctx context.Context, txID ledger.TransactionID) (*ledger.PendingInfo, error) {
	info, err := s.confirmer.WaitForConfirmation(ctx, txID, s.timeoutRounds)
	s.publish(ctx, txID, info, err)
	return info, err
}

func (s *Service) publish(ctx context.Context, txID ledger.TransactionID, info *ledger.PendingInfo, waitErr error) {
	if s.publisher == nil {
		return
	}
	event := nats.FromOutcome(s.network, txID, info, waitErr)
	if err := s.publisher.PublishConfirmation(ctx, event); err != nil {
		// Publishing is best effort; the confirmation result stands.
		s.logger.ErrorContext(ctx, "failed to publish confirmation event",
			"tx_id", txID,
			"outcome", event.Outcome,
			"error", err,
		)
	}
}
