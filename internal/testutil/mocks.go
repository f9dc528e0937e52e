// Package testutil provides mock implementations and test fixtures shared
// across the test suites.
package testutil

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/wallet"
)

// Well-known test addresses.
const (
	AliceAddress = "0x1111111111111111111111111111111111111111"
	BobAddress   = "0x2222222222222222222222222222222222222222"
	CharlieAddr  = "0x3333333333333333333333333333333333333333"
	USDCContract = "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
	TestTxHash   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// MockWalletProvider is a mock implementation of wallet.Provider.
type MockWalletProvider struct {
	mu sync.Mutex

	RequestAccountsFunc func(ctx context.Context) ([]string, error)
	ChainIDFunc         func(ctx context.Context) (int64, error)
	EnsureChainFunc     func(ctx context.Context, targetChainID int64) error
	NativeBalanceFunc   func(ctx context.Context, address string) (*big.Int, error)
	SignAndSendFunc     func(ctx context.Context, tokenContract, to common.Address, amount *big.Int) (string, error)

	Calls []string

	subscribed bool
	onAccounts wallet.AccountsChangedHandler
	onChain    wallet.ChainChangedHandler
}

// NewMockWalletProvider creates a provider mock with working defaults: one
// account on the Sepolia chain that signs every transfer.
func NewMockWalletProvider() *MockWalletProvider {
	return &MockWalletProvider{}
}

func (m *MockWalletProvider) record(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

// CallCount returns how many times the named call was recorded.
func (m *MockWalletProvider) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *MockWalletProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	m.record("RequestAccounts")
	if m.RequestAccountsFunc != nil {
		return m.RequestAccountsFunc(ctx)
	}
	return []string{AliceAddress}, nil
}

func (m *MockWalletProvider) ChainID(ctx context.Context) (int64, error) {
	m.record("ChainID")
	if m.ChainIDFunc != nil {
		return m.ChainIDFunc(ctx)
	}
	return 11155111, nil
}

func (m *MockWalletProvider) EnsureChain(ctx context.Context, targetChainID int64) error {
	m.record("EnsureChain")
	if m.EnsureChainFunc != nil {
		return m.EnsureChainFunc(ctx, targetChainID)
	}
	return nil
}

func (m *MockWalletProvider) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	m.record("NativeBalance")
	if m.NativeBalanceFunc != nil {
		return m.NativeBalanceFunc(ctx, address)
	}
	return big.NewInt(1500000000000000000), nil // 1.5 ETH
}

func (m *MockWalletProvider) SignAndSendTransfer(ctx context.Context, tokenContract, to common.Address, amount *big.Int) (string, error) {
	m.record("SignAndSendTransfer")
	if m.SignAndSendFunc != nil {
		return m.SignAndSendFunc(ctx, tokenContract, to, amount)
	}
	return TestTxHash, nil
}

func (m *MockWalletProvider) Subscribe(onAccounts wallet.AccountsChangedHandler, onChain wallet.ChainChangedHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribed {
		return wallet.ErrAlreadySubscribed
	}
	m.subscribed = true
	m.onAccounts = onAccounts
	m.onChain = onChain
	return nil
}

func (m *MockWalletProvider) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = false
	m.onAccounts = nil
	m.onChain = nil
}

// Subscribed reports whether a listener pair is registered.
func (m *MockWalletProvider) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed
}

// FireAccountsChanged simulates the provider pushing an account change.
func (m *MockWalletProvider) FireAccountsChanged(accounts []string) {
	m.mu.Lock()
	handler := m.onAccounts
	m.mu.Unlock()
	if handler != nil {
		handler(accounts)
	}
}

// FireChainChanged simulates the provider pushing a chain change.
func (m *MockWalletProvider) FireChainChanged(chainID int64) {
	m.mu.Lock()
	handler := m.onChain
	m.mu.Unlock()
	if handler != nil {
		handler(chainID)
	}
}

// MockDataSource is a mock explorer data source.
type MockDataSource struct {
	mu sync.Mutex

	GetTransfersFunc   func(ctx context.Context, address string, page, offset int) ([]entities.Transfer, error)
	GetBalanceFunc     func(ctx context.Context, address string) (string, error)
	GetTransactionFunc func(ctx context.Context, txHash string) (*entities.TransactionDetail, error)
	GetReceiptFunc     func(ctx context.Context, txHash string) (*entities.TransactionReceipt, error)

	transfers     []entities.Transfer
	balance       string
	TransferCalls int
	BalanceCalls  int
}

// NewMockDataSource creates a data source mock with an empty transfer list
// and a zero balance.
func NewMockDataSource() *MockDataSource {
	return &MockDataSource{balance: "0"}
}

// AddTransfers appends transfers to the mock's backing list.
func (m *MockDataSource) AddTransfers(transfers ...entities.Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, transfers...)
}

// SetBalance sets the raw base-unit balance the mock returns.
func (m *MockDataSource) SetBalance(balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
}

func (m *MockDataSource) GetTransfers(ctx context.Context, address string, page, offset int) ([]entities.Transfer, error) {
	m.mu.Lock()
	m.TransferCalls++
	m.mu.Unlock()
	if m.GetTransfersFunc != nil {
		return m.GetTransfersFunc(ctx, address, page, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Transfer, len(m.transfers))
	copy(out, m.transfers)
	return out, nil
}

func (m *MockDataSource) GetBalance(ctx context.Context, address string) (string, error) {
	m.mu.Lock()
	m.BalanceCalls++
	m.mu.Unlock()
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, address)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *MockDataSource) GetTransaction(ctx context.Context, txHash string) (*entities.TransactionDetail, error) {
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, txHash)
	}
	return nil, nil
}

func (m *MockDataSource) GetTransactionReceipt(ctx context.Context, txHash string) (*entities.TransactionReceipt, error) {
	if m.GetReceiptFunc != nil {
		return m.GetReceiptFunc(ctx, txHash)
	}
	return nil, nil
}

// MockHealthChecker is a mock health checker with a fixed verdict.
type MockHealthChecker struct {
	healthy bool
}

// NewMockHealthChecker creates a health checker that always reports the
// given state.
func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	return &MockHealthChecker{healthy: healthy}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if !m.healthy {
		return errors.New("health check failed")
	}
	return nil
}

// TransferOption customizes a test transfer.
type TransferOption func(*entities.Transfer)

// WithHash sets the transaction hash.
func WithHash(hash string) TransferOption {
	return func(t *entities.Transfer) { t.Hash = hash }
}

// WithFrom sets the sender address.
func WithFrom(from string) TransferOption {
	return func(t *entities.Transfer) { t.From = from }
}

// WithTo sets the recipient address.
func WithTo(to string) TransferOption {
	return func(t *entities.Transfer) { t.To = to }
}

// WithValue sets the base-unit value.
func WithValue(value string) TransferOption {
	return func(t *entities.Transfer) { t.Value = value }
}

// WithTimeStamp sets the string-encoded Unix timestamp.
func WithTimeStamp(ts string) TransferOption {
	return func(t *entities.Transfer) { t.TimeStamp = ts }
}

// CreateTestTransfer builds a transfer with sensible defaults, customized
// by options.
func CreateTestTransfer(opts ...TransferOption) entities.Transfer {
	t := entities.Transfer{
		BlockNumber:     "4500000",
		TimeStamp:       "1700000000",
		Hash:            TestTxHash,
		From:            AliceAddress,
		ContractAddress: USDCContract,
		To:              BobAddress,
		Value:           "1000000",
		TokenName:       "USD Coin",
		TokenSymbol:     "USDC",
		TokenDecimal:    "6",
		Gas:             "60000",
		GasPrice:        "20000000000",
		GasUsed:         "48000",
		Confirmations:   "120",
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// CreateMultipleTransfers builds n transfers with distinct hashes and
// descending timestamps, newest first.
func CreateMultipleTransfers(n int) []entities.Transfer {
	transfers := make([]entities.Transfer, n)
	for i := 0; i < n; i++ {
		transfers[i] = CreateTestTransfer(
			WithHash("0xhash"+strconv.Itoa(i)),
			WithTimeStamp(strconv.FormatInt(1700000000-int64(i)*3600, 10)),
		)
	}
	return transfers
}
