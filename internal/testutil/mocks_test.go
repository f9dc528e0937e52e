package testutil

import (
	"context"
	"testing"
)

func TestMockWalletProvider_Defaults(t *testing.T) {
	provider := NewMockWalletProvider()
	ctx := context.Background()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != AliceAddress {
		t.Errorf("unexpected accounts: %v", accounts)
	}

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chainID != 11155111 {
		t.Errorf("unexpected chain id: %d", chainID)
	}

	// Test call tracking
	if provider.CallCount("RequestAccounts") != 1 {
		t.Errorf("expected 1 RequestAccounts call, got %d", provider.CallCount("RequestAccounts"))
	}
	if provider.CallCount("ChainID") != 1 {
		t.Errorf("expected 1 ChainID call, got %d", provider.CallCount("ChainID"))
	}
}

func TestMockWalletProvider_Subscription(t *testing.T) {
	provider := NewMockWalletProvider()

	var gotAccounts []string
	var gotChainID int64

	err := provider.Subscribe(
		func(accounts []string) { gotAccounts = accounts },
		func(chainID int64) { gotChainID = chainID },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider.Subscribed() {
		t.Error("expected provider to report subscribed")
	}

	// Double subscription must be rejected
	if err := provider.Subscribe(nil, nil); err == nil {
		t.Error("expected error on second subscribe")
	}

	provider.FireAccountsChanged([]string{BobAddress})
	if len(gotAccounts) != 1 || gotAccounts[0] != BobAddress {
		t.Errorf("unexpected accounts from handler: %v", gotAccounts)
	}

	provider.FireChainChanged(1)
	if gotChainID != 1 {
		t.Errorf("unexpected chain id from handler: %d", gotChainID)
	}

	provider.Unsubscribe()
	if provider.Subscribed() {
		t.Error("expected provider to report unsubscribed")
	}

	// Handlers must not fire after unsubscribe
	provider.FireChainChanged(5)
	if gotChainID != 1 {
		t.Errorf("handler fired after unsubscribe: %d", gotChainID)
	}
}

func TestMockDataSource_Defaults(t *testing.T) {
	source := NewMockDataSource()
	ctx := context.Background()

	source.AddTransfers(CreateMultipleTransfers(3)...)

	transfers, err := source.GetTransfers(ctx, AliceAddress, 1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 3 {
		t.Errorf("expected 3 transfers, got %d", len(transfers))
	}

	source.SetBalance("2500000")
	balance, err := source.GetBalance(ctx, AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "2500000" {
		t.Errorf("unexpected balance: %s", balance)
	}

	if source.TransferCalls != 1 || source.BalanceCalls != 1 {
		t.Errorf("unexpected call counts: %d transfers, %d balances", source.TransferCalls, source.BalanceCalls)
	}
}

func TestCreateTestTransfer_Options(t *testing.T) {
	transfer := CreateTestTransfer(
		WithHash("0xcustom"),
		WithFrom(CharlieAddr),
		WithValue("42"),
	)

	if transfer.Hash != "0xcustom" {
		t.Errorf("unexpected hash: %s", transfer.Hash)
	}
	if transfer.From != CharlieAddr {
		t.Errorf("unexpected from: %s", transfer.From)
	}
	if transfer.Value != "42" {
		t.Errorf("unexpected value: %s", transfer.Value)
	}
	// Defaults survive unrelated options
	if transfer.TokenSymbol != "USDC" {
		t.Errorf("unexpected token symbol: %s", transfer.TokenSymbol)
	}
}

func TestCreateMultipleTransfers(t *testing.T) {
	transfers := CreateMultipleTransfers(5)

	if len(transfers) != 5 {
		t.Fatalf("expected 5 transfers, got %d", len(transfers))
	}

	seen := make(map[string]bool)
	for _, tr := range transfers {
		if seen[tr.Hash] {
			t.Errorf("duplicate hash: %s", tr.Hash)
		}
		seen[tr.Hash] = true
	}

	// Newest first
	for i := 1; i < len(transfers); i++ {
		if transfers[i-1].TimeStamp <= transfers[i].TimeStamp {
			t.Errorf("timestamps not descending at index %d", i)
		}
	}
}
