// Package wallet adapts an EIP-1193-style wallet provider behind a small
// capability interface: account access, chain management, token-transfer
// submission and change notifications.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrProviderUnavailable indicates no wallet provider could be reached.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrUserRejected indicates the user declined the connection request.
	ErrUserRejected = errors.New("user rejected the connection request")

	// ErrNoAccounts indicates the provider returned an empty account list.
	ErrNoAccounts = errors.New("no accounts found")

	// ErrChainSwitchFailed indicates the provider could not switch to the
	// requested chain.
	ErrChainSwitchFailed = errors.New("chain switch failed")

	// ErrTransferRejected indicates the user declined to sign a transfer.
	ErrTransferRejected = errors.New("transaction was rejected by user")

	// ErrAlreadySubscribed indicates a second event subscription was
	// attempted while one is active.
	ErrAlreadySubscribed = errors.New("event subscription already active")
)

// AccountsChangedHandler receives the provider's new account list.
type AccountsChangedHandler func(accounts []string)

// ChainChangedHandler receives the provider's new chain id.
type ChainChangedHandler func(chainID int64)

// ChainDescriptor describes a chain for registration with providers that
// do not know it yet.
type ChainDescriptor struct {
	ChainID          string   `json:"chainId"`
	ChainName        string   `json:"chainName"`
	NativeCurrency   Currency `json:"nativeCurrency"`
	RPCURLs          []string `json:"rpcUrls"`
	BlockExplorerURL []string `json:"blockExplorerUrls"`
}

// Currency is the native-currency part of a chain descriptor.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Provider is the wallet capability surface the session state machine
// consumes. Implementations must be safe for concurrent use.
type Provider interface {
	// RequestAccounts asks the provider for the active accounts.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID reads the network currently selected in the wallet.
	ChainID(ctx context.Context) (int64, error)

	// EnsureChain switches the wallet to the target chain, registering it
	// with the provider first if it is unknown.
	EnsureChain(ctx context.Context, targetChainID int64) error

	// NativeBalance reads the native-currency balance of an address in wei.
	NativeBalance(ctx context.Context, address string) (*big.Int, error)

	// SignAndSendTransfer submits a token transfer signed by the connected
	// account and returns the transaction hash.
	SignAndSendTransfer(ctx context.Context, tokenContract, to common.Address, amount *big.Int) (string, error)

	// Subscribe registers the single active account/chain change listener
	// pair. It fails with ErrAlreadySubscribed if one is already active.
	Subscribe(onAccounts AccountsChangedHandler, onChain ChainChangedHandler) error

	// Unsubscribe stops change notifications. It must be called on session
	// teardown so callbacks cannot fire into a torn-down session.
	Unsubscribe()
}
