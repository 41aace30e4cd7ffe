package config

import (
	"time"

	"github.com/vietddude/walletview/internal/core/domain"
	redisclient "github.com/vietddude/walletview/internal/infra/redis"
	"github.com/vietddude/walletview/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Network  domain.Network     `yaml:"network"` // used until a network is persisted
	Networks NetworksConfig     `yaml:"networks"`
	Signer   SignerConfig       `yaml:"signer"`
	RPC      RPCConfig          `yaml:"rpc"`
	Explorer ExplorerConfig     `yaml:"explorer"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Prefs    PreferencesConfig  `yaml:"preferences"`
	Tokens   []TokenConfig      `yaml:"tokens"`
	Transfer TransferConfig     `yaml:"transfer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NetworksConfig holds endpoints per network.
type NetworksConfig struct {
	Mainnet NetworkConfig `yaml:"mainnet"`
	Testnet NetworkConfig `yaml:"testnet"`
}

// Get returns the endpoints of n.
func (c NetworksConfig) Get(n domain.Network) NetworkConfig {
	if n == domain.NetworkTestnet {
		return c.Testnet
	}
	return c.Mainnet
}

// NetworkConfig holds the endpoints of one network.
type NetworkConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	ExplorerAPI    string `yaml:"explorer_api"`
	BTCAssetsAPI   string `yaml:"btc_assets_api"`
	BTCAssetsToken string `yaml:"btc_assets_token"`
}

// SignerConfig points at a remote JSON-RPC signer. An empty URL means no
// wallet is available.
type SignerConfig struct {
	URL     string        `yaml:"url"`
	Wallet  string        `yaml:"wallet"` // e.g. "JoyID", "MetaMask"
	Timeout time.Duration `yaml:"timeout"`
}

// RPCConfig tunes node and REST transports.
type RPCConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// ExplorerConfig throttles outgoing REST calls.
type ExplorerConfig struct {
	RatePerSecond   int `yaml:"rate_per_second"`
	HistoryPageSize int `yaml:"history_page_size"`
	DOBPageSize     int `yaml:"dob_page_size"`
}

// PreferencesConfig locates the file backend.
type PreferencesConfig struct {
	Path string `yaml:"path"`
}

// TokenConfig registers token metadata.
type TokenConfig struct {
	Args     string `yaml:"args"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals int32  `yaml:"decimals"`
}

// Descriptor converts the entry for the token registry.
func (t TokenConfig) Descriptor() domain.TokenDescriptor {
	return domain.TokenDescriptor{Symbol: t.Symbol, Name: t.Name, Decimals: t.Decimals, ScriptArgs: t.Args}
}

// TransferConfig holds transfer defaults.
type TransferConfig struct {
	FeeRate uint64 `yaml:"fee_rate"` // shannons per 1000 bytes
	MaxFee  uint64 `yaml:"max_fee"`  // shannons, 0 = unlimited
}
