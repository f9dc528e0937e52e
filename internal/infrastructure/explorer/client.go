// Package explorer implements the read-only client for the Etherscan-style
// block-explorer HTTP API that backs balance and transfer-history queries.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/config"
	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
)

// noTransactionsMessage is the envelope message the explorer uses for an
// empty, successful transfer query. It is not an error.
const noTransactionsMessage = "No transactions found"

// DataSourceError is a non-success response from the explorer API itself.
type DataSourceError struct {
	Message string
}

func (e *DataSourceError) Error() string {
	return "explorer API error: " + e.Message
}

// TransportError is a failure to reach or parse the explorer API at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "explorer transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// envelope is the explorer's common JSON response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client queries the block-explorer API for a single token contract.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	contractAddress string
	pageSize        int
	logger          *zap.Logger
}

// NewClient creates a new explorer API client.
func NewClient(cfg config.ExplorerConfig, contractAddress string, logger *zap.Logger) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		contractAddress: strings.ToLower(contractAddress),
		pageSize:        cfg.PageSize,
		logger:          logger,
	}
}

// GetTransfers fetches a page of token transfers for an address, newest
// first. Results are returned in the order the explorer produced them.
func (c *Client) GetTransfers(ctx context.Context, address string, page, offset int) ([]entities.Transfer, error) {
	if page < 1 {
		page = 1
	}
	if offset < 1 {
		offset = c.pageSize
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", c.contractAddress)
	params.Set("address", address)
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("startblock", "0")
	params.Set("endblock", "999999999")
	params.Set("sort", "desc")

	env, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	if env.Status == "0" {
		// Empty result set, surfaced by the API as a non-success status.
		return []entities.Transfer{}, nil
	}

	var transfers []entities.Transfer
	if err := json.Unmarshal(env.Result, &transfers); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding transfer list: %w", err)}
	}

	c.logger.Debug("Fetched transfers from explorer",
		zap.String("address", address),
		zap.Int("page", page),
		zap.Int("count", len(transfers)),
	)
	return transfers, nil
}

// GetBalance fetches the token balance of an address in raw base units.
// Returns "0" when the explorer reports no data for the address.
func (c *Client) GetBalance(ctx context.Context, address string) (string, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("contractaddress", c.contractAddress)
	params.Set("address", address)
	params.Set("tag", "latest")

	env, err := c.request(ctx, params)
	if err != nil {
		return "", err
	}
	if env.Status == "0" {
		// No data for the address, reported as a non-success status.
		return "0", nil
	}

	var balance string
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &balance); err != nil {
			return "", &TransportError{Err: fmt.Errorf("decoding balance: %w", err)}
		}
	}
	if balance == "" {
		balance = "0"
	}
	return balance, nil
}

// GetTransaction looks up a transaction through the explorer's proxy module.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*entities.TransactionDetail, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getTransactionByHash")
	params.Set("txhash", txHash)

	env, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, nil
	}

	var detail entities.TransactionDetail
	if err := json.Unmarshal(env.Result, &detail); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding transaction: %w", err)}
	}
	return &detail, nil
}

// GetTransactionReceipt looks up a transaction receipt through the
// explorer's proxy module.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*entities.TransactionReceipt, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getTransactionReceipt")
	params.Set("txhash", txHash)

	env, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, nil
	}

	var receipt entities.TransactionReceipt
	if err := json.Unmarshal(env.Result, &receipt); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding receipt: %w", err)}
	}
	return &receipt, nil
}

// HealthCheck verifies the explorer API is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_blockNumber")

	_, err := c.request(ctx, params)
	return err
}

// request issues a single GET against the explorer and classifies the
// response. A "0" status is an error unless the message marks an empty
// result; network, HTTP and decode failures become TransportError.
func (c *Client) request(ctx context.Context, params url.Values) (*envelope, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding response envelope: %w", err)}
	}

	if env.Status == "0" && env.Message != noTransactionsMessage {
		message := env.Message
		var detail string
		if json.Unmarshal(env.Result, &detail) == nil && detail != "" {
			message = detail
		}
		if message == "" {
			message = "API request failed"
		}
		c.logger.Warn("Explorer API returned error",
			zap.String("module", params.Get("module")),
			zap.String("action", params.Get("action")),
			zap.String("message", message),
		)
		return nil, &DataSourceError{Message: message}
	}

	return &env, nil
}
