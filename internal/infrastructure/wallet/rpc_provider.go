package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/config"
)

// EIP-1193 provider error codes.
const (
	codeUserRejected   = 4001
	codeUnknownChain   = 4902
	codeMethodNotFound = -32601
)

// erc20TransferABI is the minimal ABI fragment needed to encode transfer calls.
const erc20TransferABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

// RPCProvider implements Provider over a JSON-RPC wallet endpoint.
type RPCProvider struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	cfg       config.WalletConfig
	logger    *zap.Logger
	abi       abi.ABI

	mu           sync.Mutex
	subscribed   bool
	stopPolling  chan struct{}
	lastAccounts []string
	lastChainID  int64
}

// NewRPCProvider connects to the wallet provider endpoint.
func NewRPCProvider(cfg config.WalletConfig, logger *zap.Logger) (*RPCProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("parsing transfer ABI: %w", err)
	}

	logger.Info("Connected to wallet provider", zap.String("rpc_url", cfg.RPCURL))

	return &RPCProvider{
		rpcClient: client,
		ethClient: ethclient.NewClient(client),
		cfg:       cfg,
		logger:    logger,
		abi:       parsed,
	}, nil
}

// Close tears down the provider connection.
func (p *RPCProvider) Close() {
	p.Unsubscribe()
	p.rpcClient.Close()
}

// RequestAccounts asks the provider for the active accounts. Providers
// without the interactive method fall back to the plain account list.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := p.rpcClient.CallContext(ctx, &accounts, "eth_requestAccounts")
	if err != nil {
		switch errorCode(err) {
		case codeUserRejected:
			return nil, ErrUserRejected
		case codeMethodNotFound:
			if err = p.rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
		default:
			if isUserRejection(err) {
				return nil, ErrUserRejected
			}
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	for i, a := range accounts {
		accounts[i] = strings.ToLower(a)
	}
	return accounts, nil
}

// ChainID reads the network currently selected in the wallet.
func (p *RPCProvider) ChainID(ctx context.Context) (int64, error) {
	id, err := p.ethClient.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return id.Int64(), nil
}

// HealthCheck verifies the wallet RPC endpoint is reachable.
func (p *RPCProvider) HealthCheck(ctx context.Context) error {
	_, err := p.ethClient.ChainID(ctx)
	return err
}

// EnsureChain switches the wallet to the target chain. An unknown chain is
// registered with the provider's descriptor first, then switched to.
func (p *RPCProvider) EnsureChain(ctx context.Context, targetChainID int64) error {
	current, err := p.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainSwitchFailed, err)
	}
	if current == targetChainID {
		return nil
	}

	chainIDHex := fmt.Sprintf("0x%x", targetChainID)
	err = p.rpcClient.CallContext(ctx, nil, "wallet_switchEthereumChain",
		map[string]string{"chainId": chainIDHex})
	if err == nil {
		p.logger.Info("Switched wallet chain", zap.Int64("chain_id", targetChainID))
		return nil
	}

	if errorCode(err) != codeUnknownChain {
		return fmt.Errorf("%w: %v", ErrChainSwitchFailed, err)
	}

	descriptor := ChainDescriptor{
		ChainID:   chainIDHex,
		ChainName: p.cfg.ChainName,
		NativeCurrency: Currency{
			Name:     p.cfg.CurrencyName,
			Symbol:   p.cfg.CurrencySymbol,
			Decimals: p.cfg.CurrencyDecimals,
		},
		RPCURLs:          []string{p.cfg.PublicRPCURL},
		BlockExplorerURL: []string{p.cfg.ExplorerURL},
	}
	if err := p.rpcClient.CallContext(ctx, nil, "wallet_addEthereumChain", descriptor); err != nil {
		return fmt.Errorf("%w: %v", ErrChainSwitchFailed, err)
	}
	if err := p.rpcClient.CallContext(ctx, nil, "wallet_switchEthereumChain",
		map[string]string{"chainId": chainIDHex}); err != nil {
		return fmt.Errorf("%w: %v", ErrChainSwitchFailed, err)
	}

	p.logger.Info("Registered and switched wallet chain", zap.Int64("chain_id", targetChainID))
	return nil
}

// NativeBalance reads the native-currency balance of an address in wei.
func (p *RPCProvider) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	balance, err := p.ethClient.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("reading native balance: %w", err)
	}
	return balance, nil
}

// SignAndSendTransfer submits an ERC-20 transfer call signed by the
// connected account and returns the transaction hash.
func (p *RPCProvider) SignAndSendTransfer(ctx context.Context, tokenContract, to common.Address, amount *big.Int) (string, error) {
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}

	data, err := p.abi.Pack("transfer", to, amount)
	if err != nil {
		return "", fmt.Errorf("encoding transfer call: %w", err)
	}

	tx := map[string]interface{}{
		"from": accounts[0],
		"to":   tokenContract.Hex(),
		"data": hexutil.Encode(data),
	}

	var txHash string
	if err := p.rpcClient.CallContext(ctx, &txHash, "eth_sendTransaction", tx); err != nil {
		if errorCode(err) == codeUserRejected || isUserRejection(err) {
			return "", ErrTransferRejected
		}
		return "", err
	}

	p.logger.Info("Submitted token transfer",
		zap.String("tx_hash", txHash),
		zap.String("to", to.Hex()),
	)
	return txHash, nil
}

// Subscribe starts change notifications. Providers reached over plain
// JSON-RPC have no push channel for account or chain changes, so both are
// detected by polling at the configured interval.
func (p *RPCProvider) Subscribe(onAccounts AccountsChangedHandler, onChain ChainChangedHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subscribed {
		return ErrAlreadySubscribed
	}
	p.subscribed = true
	p.stopPolling = make(chan struct{})

	go p.poll(p.stopPolling, onAccounts, onChain)
	return nil
}

// Unsubscribe stops change notifications.
func (p *RPCProvider) Unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.subscribed {
		return
	}
	close(p.stopPolling)
	p.subscribed = false
	p.lastAccounts = nil
	p.lastChainID = 0
}

func (p *RPCProvider) poll(stop <-chan struct{}, onAccounts AccountsChangedHandler, onChain ChainChangedHandler) {
	ticker := time.NewTicker(p.cfg.EventPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RequestTimeout)

		var accounts []string
		if err := p.rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err == nil {
			for i, a := range accounts {
				accounts[i] = strings.ToLower(a)
			}
			p.mu.Lock()
			changed := p.lastAccounts != nil && !equalAccounts(accounts, p.lastAccounts)
			p.lastAccounts = accounts
			p.mu.Unlock()
			if changed {
				onAccounts(accounts)
			}
		}

		if chainID, err := p.ChainID(ctx); err == nil {
			p.mu.Lock()
			changed := p.lastChainID != 0 && chainID != p.lastChainID
			p.lastChainID = chainID
			p.mu.Unlock()
			if changed {
				onChain(chainID)
			}
		}

		cancel()
	}
}

func equalAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// errorCode extracts the EIP-1193/JSON-RPC error code if the provider
// supplied one.
func errorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

// isUserRejection is the message-substring fallback for providers that do
// not return coded errors. Last resort only; coded matching is preferred.
func isUserRejection(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "user rejected")
}
