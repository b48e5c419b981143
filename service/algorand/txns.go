package algorand

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// AssetParams describes a new asset. Creator becomes manager, reserve,
// freeze and clawback address.
type AssetParams struct {
	Creator       string
	Total         uint64
	Decimals      uint32
	DefaultFrozen bool
	UnitName      string
	AssetName     string
	URL           string
}

// BuildAssetCreate builds an unsigned asset creation transaction.
func BuildAssetCreate(p AssetParams, sp types.SuggestedParams) (types.Transaction, error) {
	txn, err := transaction.MakeAssetCreateTxn(
		p.Creator, nil, sp,
		p.Total, p.Decimals, p.DefaultFrozen,
		p.Creator, p.Creator, p.Creator, p.Creator,
		p.UnitName, p.AssetName, p.URL, "",
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build asset create txn: %w", err)
	}
	return txn, nil
}

// BuildOptIn builds the zero-amount self transfer that lets account hold assetIndex.
func BuildOptIn(account string, assetIndex uint64, sp types.SuggestedParams) (types.Transaction, error) {
	txn, err := transaction.MakeAssetAcceptanceTxn(account, nil, sp, assetIndex)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build opt-in txn: %w", err)
	}
	return txn, nil
}

// BuildTransfer builds an asset transfer of amount units from one account to another.
func BuildTransfer(from, to string, amount, assetIndex uint64, sp types.SuggestedParams) (types.Transaction, error) {
	txn, err := transaction.MakeAssetTransferTxn(from, to, amount, nil, sp, "", assetIndex)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to build transfer txn: %w", err)
	}
	return txn, nil
}

// GroupTransactions assigns a shared group id so the transactions are
// confirmed atomically. The input slice is not modified.
func GroupTransactions(txns ...types.Transaction) ([]types.Transaction, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("no transactions to group")
	}
	gid, err := crypto.ComputeGroupID(txns)
	if err != nil {
		return nil, fmt.Errorf("failed to compute group id: %w", err)
	}
	grouped := make([]types.Transaction, len(txns))
	for i, txn := range txns {
		txn.Group = gid
		grouped[i] = txn
	}
	return grouped, nil
}

// EncodeUnsigned returns the canonical msgpack encoding of an unsigned transaction.
func EncodeUnsigned(txn types.Transaction) []byte {
	return msgpack.Encode(txn)
}

// EncodeSigned pairs a transaction with a raw ed25519 signature produced
// elsewhere and returns the msgpack-encoded signed transaction.
func EncodeSigned(txn types.Transaction, sig []byte) ([]byte, error) {
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature length %d, expected %d", len(sig), ed25519.SignatureSize)
	}
	stxn := types.SignedTxn{Txn: txn}
	copy(stxn.Sig[:], sig)
	return msgpack.Encode(stxn), nil
}

// TxID returns the id the ledger will assign to txn.
func TxID(txn types.Transaction) string {
	return crypto.GetTxID(txn)
}
