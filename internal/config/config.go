package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Wallet provider configuration
	Wallet WalletConfig

	// Block-explorer API configuration
	Explorer ExplorerConfig

	// Token configuration
	Token TokenConfig

	// API server configuration
	API APIConfig

	// Transfer cache configuration
	Cache CacheConfig

	// Logging configuration
	Log LogConfig
}

// WalletConfig holds wallet provider connection settings
type WalletConfig struct {
	RPCURL            string        `envconfig:"WALLET_RPC_URL" default:"http://localhost:8545"`
	TargetChainID     int64         `envconfig:"WALLET_TARGET_CHAIN_ID" default:"11155111"`
	MainnetChainID    int64         `envconfig:"WALLET_MAINNET_CHAIN_ID" default:"1"`
	RequestTimeout    time.Duration `envconfig:"WALLET_REQUEST_TIMEOUT" default:"30s"`
	EventPollInterval time.Duration `envconfig:"WALLET_EVENT_POLL_INTERVAL" default:"4s"`

	// Descriptor used when the target chain has to be registered with the provider
	ChainName        string `envconfig:"WALLET_CHAIN_NAME" default:"Sepolia Test Network"`
	CurrencyName     string `envconfig:"WALLET_CURRENCY_NAME" default:"Sepolia Ether"`
	CurrencySymbol   string `envconfig:"WALLET_CURRENCY_SYMBOL" default:"ETH"`
	CurrencyDecimals int    `envconfig:"WALLET_CURRENCY_DECIMALS" default:"18"`
	PublicRPCURL     string `envconfig:"WALLET_PUBLIC_RPC_URL" default:"https://sepolia.infura.io/v3/"`
	ExplorerURL      string `envconfig:"WALLET_EXPLORER_URL" default:"https://sepolia.etherscan.io/"`
}

// ExplorerConfig holds block-explorer HTTP API settings
type ExplorerConfig struct {
	BaseURL        string        `envconfig:"EXPLORER_BASE_URL" default:"https://api-sepolia.etherscan.io/api"`
	APIKey         string        `envconfig:"EXPLORER_API_KEY" default:""`
	RequestTimeout time.Duration `envconfig:"EXPLORER_REQUEST_TIMEOUT" default:"15s"`
	PageSize       int           `envconfig:"EXPLORER_PAGE_SIZE" default:"100"`
}

// TokenConfig holds the monitored token settings
type TokenConfig struct {
	ContractAddress string `envconfig:"TOKEN_CONTRACT_ADDRESS" default:"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"`
	MainnetAddress  string `envconfig:"TOKEN_MAINNET_ADDRESS" default:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`
	Symbol          string `envconfig:"TOKEN_SYMBOL" default:"USDC"`
	Decimals        int    `envconfig:"TOKEN_DECIMALS" default:"6"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
}

// CacheConfig holds transfer cache settings
type CacheConfig struct {
	TTL time.Duration `envconfig:"CACHE_TTL" default:"2m"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TokenContract returns the token contract deployed on the configured
// target chain: the mainnet deployment when the target chain is mainnet,
// the test deployment otherwise.
func (c *Config) TokenContract() string {
	if c.Wallet.TargetChainID == c.Wallet.MainnetChainID {
		return c.Token.MainnetAddress
	}
	return c.Token.ContractAddress
}
