package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bimakw/usdc-dashboard/internal/config"
	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
	"github.com/bimakw/usdc-dashboard/internal/format"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/wallet"
)

var (
	// ErrNotConnected indicates an action that requires a connected wallet.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrConnectInProgress indicates connect was called while a connect
	// attempt is still in flight.
	ErrConnectInProgress = errors.New("connect already in progress")

	// ErrAlreadyConnected indicates connect was called on a live session.
	ErrAlreadyConnected = errors.New("wallet already connected")
)

// transferRejectedMessage is the fixed user-facing message for transfers
// declined in the wallet. All other failures surface verbatim.
const transferRejectedMessage = "Transaction was rejected by user."

// TransferError is the failure a transfer action surfaces to its caller so
// a dedicated failure view can be rendered. The session's connection state
// is never affected by it.
type TransferError struct {
	Message string
	Err     error
}

func (e *TransferError) Error() string { return e.Message }

func (e *TransferError) Unwrap() error { return e.Err }

// DataSource is the read-only explorer surface the session needs.
type DataSource interface {
	GetTransfers(ctx context.Context, address string, page, offset int) ([]entities.Transfer, error)
	GetBalance(ctx context.Context, address string) (string, error)
}

// SessionService is the wallet session state machine. It owns the single
// live Session, is the only code path mutating it, and serializes all
// transitions against one mutex. Balance refreshes are single-flighted
// per address so concurrent callers share one fetch, while refreshes for
// different addresses run independently.
type SessionService struct {
	provider wallet.Provider
	source   DataSource
	cfg      *config.Config
	logger   *zap.Logger

	mu      sync.Mutex
	session entities.Session

	// connectGen identifies the connect attempt that put the session into
	// Connecting, so a superseded attempt cannot apply its result.
	connectGen uint64

	refreshGroup singleflight.Group

	watchMu  sync.Mutex
	watchers map[chan entities.Session]struct{}
}

// NewSessionService creates a new session service.
func NewSessionService(provider wallet.Provider, source DataSource, cfg *config.Config, logger *zap.Logger) *SessionService {
	return &SessionService{
		provider: provider,
		source:   source,
		cfg:      cfg,
		logger:   logger,
		session:  entities.NewSession(),
		watchers: make(map[chan entities.Session]struct{}),
	}
}

// Snapshot returns a copy of the current session state.
func (s *SessionService) Snapshot() entities.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Connect moves the session from Disconnected to Connected: it requests
// the provider's accounts, ensures the target chain is selected, then
// kicks off a balance refresh in the background so callers observe the
// Connected state before balances resolve.
func (s *SessionService) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.session.Status {
	case entities.StatusConnecting:
		s.mu.Unlock()
		return ErrConnectInProgress
	case entities.StatusConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.session = entities.NewSession()
	s.session.Status = entities.StatusConnecting
	s.connectGen++
	gen := s.connectGen
	s.notifyLocked()
	s.mu.Unlock()

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return s.failConnect(gen, err)
	}
	address := strings.ToLower(accounts[0])

	if err := s.provider.EnsureChain(ctx, s.cfg.Wallet.TargetChainID); err != nil {
		return s.failConnect(gen, err)
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return s.failConnect(gen, err)
	}

	s.mu.Lock()
	// A disconnect may have superseded this attempt while the provider
	// calls were in flight; its result must not resurrect the session.
	if s.session.Status != entities.StatusConnecting || s.connectGen != gen {
		s.mu.Unlock()
		s.logger.Info("Discarding superseded connect result", zap.String("address", address))
		return nil
	}
	s.session.Status = entities.StatusConnected
	s.session.Address = address
	s.session.ChainID = chainID
	s.notifyLocked()
	s.mu.Unlock()

	if err := s.provider.Subscribe(s.handleAccountsChanged, s.handleChainChanged); err != nil &&
		!errors.Is(err, wallet.ErrAlreadySubscribed) {
		s.logger.Warn("Failed to subscribe to provider events", zap.Error(err))
	}

	s.logger.Info("Wallet connected",
		zap.String("address", address),
		zap.Int64("chain_id", chainID),
	)

	go s.refreshInBackground(address)
	return nil
}

// Disconnect resets the session to its initial state from any status.
func (s *SessionService) Disconnect() {
	s.provider.Unsubscribe()

	s.mu.Lock()
	s.session = entities.NewSession()
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Info("Wallet disconnected")
}

// RefreshBalances fetches native and token balances for the connected
// address. Concurrent callers share one in-flight refresh; results for an
// address that is no longer connected are discarded.
func (s *SessionService) RefreshBalances(ctx context.Context) error {
	s.mu.Lock()
	if s.session.Status != entities.StatusConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	address := s.session.Address
	s.session.LastError = ""
	s.mu.Unlock()

	return s.refresh(ctx, address)
}

func (s *SessionService) refresh(ctx context.Context, address string) error {
	_, err, _ := s.refreshGroup.Do(address, func() (interface{}, error) {
		var nativeBalance, tokenBalance string

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			wei, err := s.provider.NativeBalance(gctx, address)
			if err != nil {
				return fmt.Errorf("native balance: %w", err)
			}
			nativeBalance, err = format.ToDisplayAmount(wei.String(), s.cfg.Wallet.CurrencyDecimals)
			return err
		})
		g.Go(func() error {
			raw, err := s.source.GetBalance(gctx, address)
			if err != nil {
				return fmt.Errorf("token balance: %w", err)
			}
			tokenBalance, err = format.ToDisplayAmount(raw, s.cfg.Token.Decimals)
			return err
		})

		if err := g.Wait(); err != nil {
			s.mu.Lock()
			// Previous balances stay untouched on failure.
			if s.session.Address == address {
				s.session.LastError = err.Error()
				s.notifyLocked()
			}
			s.mu.Unlock()
			return nil, err
		}

		s.mu.Lock()
		// Stale-response guard: the session may have moved on while the
		// fetch was in flight.
		if s.session.Status == entities.StatusConnected && s.session.Address == address {
			s.session.NativeBalance = nativeBalance
			s.session.TokenBalance = tokenBalance
			s.notifyLocked()
		}
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

func (s *SessionService) refreshInBackground(address string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Explorer.RequestTimeout+s.cfg.Wallet.RequestTimeout)
	defer cancel()

	if err := s.refresh(ctx, address); err != nil {
		s.logger.Warn("Background balance refresh failed",
			zap.String("address", address),
			zap.Error(err),
		)
	}
}

// Transfer validates and submits a token transfer signed by the connected
// wallet, returning the transaction hash. Failures never alter the
// connection state.
func (s *SessionService) Transfer(ctx context.Context, to, amount string) (string, error) {
	s.mu.Lock()
	if s.session.Status != entities.StatusConnected {
		s.mu.Unlock()
		return "", &TransferError{Message: ErrNotConnected.Error(), Err: ErrNotConnected}
	}
	s.session.LastError = ""
	s.mu.Unlock()

	if !format.IsValidAddress(to) {
		return "", s.failTransfer("invalid recipient address", format.ErrInvalidAddress)
	}

	baseUnits, err := format.ToBaseUnits(amount, s.cfg.Token.Decimals)
	if err != nil {
		return "", s.failTransfer("invalid transfer amount", err)
	}
	value, _ := new(big.Int).SetString(baseUnits, 10)

	txHash, err := s.provider.SignAndSendTransfer(ctx,
		common.HexToAddress(s.cfg.TokenContract()),
		common.HexToAddress(to),
		value,
	)
	if err != nil {
		message := err.Error()
		if errors.Is(err, wallet.ErrTransferRejected) || errors.Is(err, wallet.ErrUserRejected) {
			message = transferRejectedMessage
		}
		return "", s.failTransfer(message, err)
	}

	s.logger.Info("Transfer submitted",
		zap.String("tx_hash", txHash),
		zap.String("to", strings.ToLower(to)),
		zap.String("amount", amount),
	)
	return txHash, nil
}

func (s *SessionService) failTransfer(message string, err error) *TransferError {
	s.mu.Lock()
	s.session.LastError = message
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Warn("Transfer failed", zap.String("reason", message))
	return &TransferError{Message: message, Err: err}
}

func (s *SessionService) failConnect(gen uint64, err error) error {
	s.mu.Lock()
	// Only the attempt that owns the Connecting state may stamp its
	// failure; a session already reset by a disconnect stays untouched.
	if s.session.Status == entities.StatusConnecting && s.connectGen == gen {
		s.session = entities.NewSession()
		s.session.LastError = err.Error()
		s.notifyLocked()
	}
	s.mu.Unlock()

	s.logger.Warn("Wallet connect failed", zap.Error(err))
	return err
}

// handleAccountsChanged reacts to the provider's account-change push. An
// empty list behaves exactly like Disconnect; a new primary account jumps
// straight to Connected with the new address and refreshes balances.
func (s *SessionService) handleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		s.Disconnect()
		return
	}

	next := strings.ToLower(accounts[0])

	s.mu.Lock()
	if s.session.Address == next {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Wallet.RequestTimeout)
	chainID, err := s.provider.ChainID(ctx)
	cancel()
	if err != nil {
		s.logger.Warn("Failed to resolve chain after account change", zap.Error(err))
	}

	s.mu.Lock()
	s.session = entities.NewSession()
	s.session.Status = entities.StatusConnected
	s.session.Address = next
	s.session.ChainID = chainID
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Info("Active account changed", zap.String("address", next))

	go s.refreshInBackground(next)
}

// handleChainChanged updates the chain id in place; address and
// connection status are untouched.
func (s *SessionService) handleChainChanged(chainID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status != entities.StatusConnected {
		return
	}
	s.session.ChainID = chainID
	s.notifyLocked()

	s.logger.Info("Wallet chain changed", zap.Int64("chain_id", chainID))
}

// Watch registers a session-change listener. The channel receives a
// snapshot after every transition; slow listeners miss intermediate
// states rather than blocking the session.
func (s *SessionService) Watch() <-chan entities.Session {
	ch := make(chan entities.Session, 8)

	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	return ch
}

// Unwatch removes a listener registered with Watch.
func (s *SessionService) Unwatch(ch <-chan entities.Session) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for w := range s.watchers {
		if w == ch {
			delete(s.watchers, w)
			close(w)
			return
		}
	}
}

// notifyLocked fans the current session out to watchers. Callers must
// hold s.mu.
func (s *SessionService) notifyLocked() {
	snapshot := s.session

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
