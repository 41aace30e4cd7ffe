package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/walletview/internal/core/domain"
)

// Default public endpoints.
var (
	DefaultMainnet = NetworkConfig{
		RPCURL:       "https://mainnet.ckb.dev/",
		ExplorerAPI:  "https://mainnet-api.explorer.nervos.org/api/v1",
		BTCAssetsAPI: "https://api.rgbpp.io",
	}
	DefaultTestnet = NetworkConfig{
		RPCURL:       "https://testnet.ckb.dev/",
		ExplorerAPI:  "https://testnet-api.explorer.nervos.org/api/v1",
		BTCAssetsAPI: "https://api-testnet.rgbpp.io",
	}
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration using public endpoints only.
func Default() *AppConfig {
	var cfg AppConfig
	_ = cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields and validates the rest.
func (cfg *AppConfig) ApplyDefaults() error {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Network == "" {
		cfg.Network = domain.NetworkMainnet
	}
	if _, err := domain.ParseNetwork(string(cfg.Network)); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	fillNetwork(&cfg.Networks.Mainnet, DefaultMainnet)
	fillNetwork(&cfg.Networks.Testnet, DefaultTestnet)

	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = 30 * time.Second
	}
	if cfg.RPC.RetryAttempts == 0 {
		cfg.RPC.RetryAttempts = 1
	}
	if cfg.Signer.Timeout == 0 {
		cfg.Signer.Timeout = 2 * time.Minute
	}
	if cfg.Explorer.HistoryPageSize == 0 {
		cfg.Explorer.HistoryPageSize = 5
	}
	if cfg.Explorer.DOBPageSize == 0 {
		cfg.Explorer.DOBPageSize = 20
	}
	if cfg.Redis.NotifyChannel == "" {
		cfg.Redis.NotifyChannel = "walletview:notifications"
	}
	if cfg.Prefs.Path == "" {
		cfg.Prefs.Path = "walletview-prefs.yaml"
	}
	if cfg.Transfer.FeeRate == 0 {
		cfg.Transfer.FeeRate = 1000
	}
	return nil
}

func fillNetwork(n *NetworkConfig, def NetworkConfig) {
	if n.RPCURL == "" {
		n.RPCURL = def.RPCURL
	}
	if n.ExplorerAPI == "" {
		n.ExplorerAPI = def.ExplorerAPI
	}
	if n.BTCAssetsAPI == "" {
		n.BTCAssetsAPI = def.BTCAssetsAPI
	}
}
