package config

import "testing"

func TestTokenContract(t *testing.T) {
	cfg := &Config{
		Wallet: WalletConfig{TargetChainID: 11155111, MainnetChainID: 1},
		Token: TokenConfig{
			ContractAddress: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
			MainnetAddress:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		},
	}

	if got := cfg.TokenContract(); got != cfg.Token.ContractAddress {
		t.Errorf("expected test deployment on testnet target, got %s", got)
	}

	cfg.Wallet.TargetChainID = 1
	if got := cfg.TokenContract(); got != cfg.Token.MainnetAddress {
		t.Errorf("expected mainnet deployment on mainnet target, got %s", got)
	}
}
