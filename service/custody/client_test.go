package custody

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brojonat/assetxfer/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL, "test-app", "test-api-key", "test-service-key", metrics.NewMetrics(prometheus.NewRegistry()), logger)
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, userPath, r.URL.Path)
		assert.Equal(t, "ore1abc", r.URL.Query().Get("account"))
		assert.Equal(t, "test-api-key", r.Header.Get("api-key"))
		assert.Equal(t, "test-service-key", r.Header.Get("service-key"))
		assert.Equal(t, "test-app", r.Header.Get("app-id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"accountName": "ore1abc",
			"permissions": [
				{"chainAccount": "ADDR1", "chainNetwork": "algo_test", "permission": "active"},
				{"chainAccount": "ADDR2", "chainNetwork": "algo_main"}
			]
		}`))
	})

	user, err := c.GetUser(context.Background(), "ore1abc")
	require.NoError(t, err)
	assert.Equal(t, "ore1abc", user.AccountName)

	primary, err := user.Primary()
	require.NoError(t, err)
	assert.Equal(t, "ADDR1", primary.ChainAccount)
	assert.Equal(t, "algo_test", primary.ChainNetwork)
}

func TestNewClient_NoAppID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sent := r.Header["App-Id"]
		assert.False(t, sent)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accountName": "ore1abc", "permissions": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-api-key", "test-service-key", nil, nil)
	_, err := c.GetUser(context.Background(), "ore1abc")
	require.NoError(t, err)
}

func TestGetUser_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "account not found"}`))
	})

	_, err := c.GetUser(context.Background(), "nobody")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "account not found", apiErr.Message)
}

func TestGetUser_ErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetUser(context.Background(), "ore1abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad Gateway")
}

func TestSign(t *testing.T) {
	unsigned := []byte{0x82, 0xa3, 0x74, 0x78, 0x6e}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, signPath, r.URL.Path)

		var req signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ore1abc", req.Account)
		assert.Equal(t, "ADDR1", req.ChainAccount)
		assert.Equal(t, "algo_test", req.ChainNetwork)
		assert.Equal(t, "1234", req.UserPassword)
		assert.False(t, req.Broadcast)
		assert.True(t, req.ReturnSignedTransaction)

		raw, err := base64.StdEncoding.DecodeString(req.Transaction)
		require.NoError(t, err)
		assert.Equal(t, unsigned, raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signed_transaction": {"signatures": ["deadbeef"]}}`))
	})

	resp, err := c.Sign(context.Background(), SignParams{
		Account:      "ore1abc",
		ChainAccount: "ADDR1",
		ChainNetwork: "algo_test",
		Transaction:  unsigned,
		UserPassword: "1234",
	})
	require.NoError(t, err)

	sig, err := resp.Signature()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, sig)
}

func TestSign_WrongPIN(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid user password"}`))
	})

	_, err := c.Sign(context.Background(), SignParams{Account: "ore1abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user password")
}

func TestUser_Primary_NoPermissions(t *testing.T) {
	_, err := (&User{AccountName: "ore1abc"}).Primary()
	assert.ErrorIs(t, err, ErrNoPermissions)

	var nilUser *User
	_, err = nilUser.Primary()
	assert.ErrorIs(t, err, ErrNoPermissions)
}

func TestSignResponse_Signature(t *testing.T) {
	tests := []struct {
		name string
		resp *SignResponse
	}{
		{"nil response", nil},
		{"no signed transaction", &SignResponse{}},
		{"no signatures", &SignResponse{SignedTransaction: &SignedTransaction{}}},
		{"not hex", &SignResponse{SignedTransaction: &SignedTransaction{Signatures: []string{"zz"}}}},
		{"empty signature", &SignResponse{SignedTransaction: &SignedTransaction{Signatures: []string{""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resp.Signature()
			assert.ErrorIs(t, err, ErrNoSignature)
		})
	}
}
