package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxLedgerConcurrency caps parallel output lookups per request.
const MaxLedgerConcurrency = 64

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeOnline
	}
	if cfg.Mode != ModeOnline && cfg.Mode != ModeOffline {
		return fmt.Errorf("mode must be %q or %q", ModeOnline, ModeOffline)
	}
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be in range [0, 65535]")
	}
	for i, entry := range cfg.API.AllowedIPs {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("api.allowed[%d]: %q is not an IP or CIDR", i, entry)
		}
	}

	if cfg.Online() {
		u, err := url.Parse(cfg.Node.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("node.url %q is not a valid URL", cfg.Node.URL)
		}
		if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
			return fmt.Errorf("node.url must use http or https")
		}
		if cfg.Node.Timeout <= 0 {
			return fmt.Errorf("node.timeout must be positive")
		}
	}

	if cfg.Ledger.Attempts < 1 {
		return fmt.Errorf("ledger.attempts must be at least 1")
	}
	if cfg.Ledger.Concurrency < 1 || cfg.Ledger.Concurrency > MaxLedgerConcurrency {
		return fmt.Errorf("ledger.concurrency must be in range [1, %d]", MaxLedgerConcurrency)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error")
	}

	return nil
}
