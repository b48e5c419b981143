package custody

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNoPermissions is returned when a user has no chain account attached.
	ErrNoPermissions = errors.New("user has no chain permissions")

	// ErrNoSignature is returned when a sign response carries no usable signature.
	ErrNoSignature = errors.New("sign response has no signature")
)

// Permission links a custody account to an address on a chain network.
type Permission struct {
	ChainAccount   string `json:"chainAccount"`
	ChainNetwork   string `json:"chainNetwork"`
	PermissionName string `json:"permission,omitempty"`
}

// User is a custody account as returned by the identity service.
type User struct {
	AccountName string       `json:"accountName"`
	Email       string       `json:"email,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// Primary returns the first chain permission of the user.
func (u *User) Primary() (Permission, error) {
	if u == nil || len(u.Permissions) == 0 {
		return Permission{}, ErrNoPermissions
	}
	return u.Permissions[0], nil
}

// SignParams describes a custodial signing request. Transaction holds the
// encoded unsigned transaction; it is sent base64 encoded.
type SignParams struct {
	Account      string
	ChainAccount string
	ChainNetwork string
	Transaction  []byte
	UserPassword string
}

type signRequest struct {
	Account                 string `json:"account"`
	ChainAccount            string `json:"chain_account"`
	ChainNetwork            string `json:"chain_network"`
	Transaction             string `json:"transaction"`
	UserPassword            string `json:"user_password"`
	Broadcast               bool   `json:"broadcast"`
	ReturnSignedTransaction bool   `json:"return_signed_transaction"`
}

// SignedTransaction is the signed payload returned by the identity service.
type SignedTransaction struct {
	Signatures []string `json:"signatures"`
}

// SignResponse is the result of a custodial signing request.
type SignResponse struct {
	TransactionID     string             `json:"transaction_id,omitempty"`
	SignedTransaction *SignedTransaction `json:"signed_transaction"`
}

// Signature decodes the first hex signature of the response.
func (r *SignResponse) Signature() ([]byte, error) {
	if r == nil || r.SignedTransaction == nil || len(r.SignedTransaction.Signatures) == 0 {
		return nil, ErrNoSignature
	}
	sig, err := hex.DecodeString(r.SignedTransaction.Signatures[0])
	if err != nil || len(sig) == 0 {
		return nil, fmt.Errorf("%w: invalid hex signature", ErrNoSignature)
	}
	return sig, nil
}

// APIError is a non-2xx response from the identity service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("custody service returned %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b *errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}
