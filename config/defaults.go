package config

import "time"

// DefaultMainnet returns the default gateway configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		Mode:    ModeOnline,
		DataDir: DefaultDataDir(),
		API: APIConfig{
			Addr:       "127.0.0.1",
			Port:       8080,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Node: NodeConfig{
			URL:     "http://127.0.0.1:8545",
			Timeout: 10 * time.Second,
		},
		Construction: ConstructionConfig{
			Tag: true,
		},
		Ledger: LedgerConfig{
			Attempts:    3,
			Concurrency: 8,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default gateway configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.API.Port = 8081
	cfg.Node.URL = "http://127.0.0.1:8645"
	return cfg
}

// Default returns the default gateway configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
