package custody

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/assetxfer/service/metrics"
	"github.com/go-resty/resty/v2"
)

const (
	userPath = "/api/account/user"
	signPath = "/api/transaction/sign"
)

// Client talks to an ORE ID style identity service that holds user keys.
type Client struct {
	http    *resty.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a custody client. apiKey and serviceKey are sent on
// every request, appID too when set. If m is nil, no metrics will be recorded.
func NewClient(baseURL, appID, apiKey, serviceKey string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("api-key", apiKey).
		SetHeader("service-key", serviceKey).
		SetHeader("Accept", "application/json")
	if appID != "" {
		httpClient.SetHeader("app-id", appID)
	}

	return &Client{
		http:    httpClient,
		metrics: m,
		logger:  logger,
	}
}

// GetUser looks up a custody account by name.
func (c *Client) GetUser(ctx context.Context, account string) (user *User, err error) {
	start := time.Now()
	defer func() { c.record("GetUser", err, start) }()

	var out User
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("account", account).
		SetResult(&out).
		SetError(&apiErr).
		Get(userPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", account, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to get user %s: %w", account, toAPIError(resp, &apiErr))
	}

	c.logger.DebugContext(ctx, "fetched custody user",
		"account", account,
		"permissions", len(out.Permissions),
	)
	return &out, nil
}

// Sign asks the service to sign a transaction with the user's custodied key.
// The transaction is never broadcast by the service.
func (c *Client) Sign(ctx context.Context, p SignParams) (signed *SignResponse, err error) {
	start := time.Now()
	defer func() { c.record("Sign", err, start) }()

	body := signRequest{
		Account:                 p.Account,
		ChainAccount:            p.ChainAccount,
		ChainNetwork:            p.ChainNetwork,
		Transaction:             base64.StdEncoding.EncodeToString(p.Transaction),
		UserPassword:            p.UserPassword,
		Broadcast:               false,
		ReturnSignedTransaction: true,
	}

	var out SignResponse
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(signPath)
	if err != nil {
		return nil, fmt.Errorf("failed to sign for %s: %w", p.Account, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to sign for %s: %w", p.Account, toAPIError(resp, &apiErr))
	}

	c.logger.DebugContext(ctx, "custodial signature received",
		"account", p.Account,
		"chain_network", p.ChainNetwork,
	)
	return &out, nil
}

func toAPIError(resp *resty.Response, body *errorBody) *APIError {
	msg := body.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

func (c *Client) record(method string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCustodyCall(method, err, time.Since(start).Seconds())
}
