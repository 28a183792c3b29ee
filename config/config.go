// Package config handles gateway configuration.
//
// Settings are resolved in three layers: per-network defaults, the
// rosetta.conf file in the data directory, and command-line flags.
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Mode selects whether the gateway may reach the ledger node.
type Mode string

const (
	ModeOnline  Mode = "online"  // All endpoints available
	ModeOffline Mode = "offline" // Only node-independent construction endpoints
)

// Config holds gateway runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	Mode    Mode        `conf:"mode"`
	DataDir string      `conf:"datadir"`

	// Rosetta API server
	API APIConfig

	// Ledger node connection
	Node NodeConfig

	// Construction flow
	Construction ConstructionConfig

	// Ledger reads
	Ledger LedgerConfig

	// Spent-output cache
	Cache CacheConfig

	// Logging
	Log LogConfig
}

// APIConfig holds Rosetta API server settings.
type APIConfig struct {
	Addr        string   `conf:"api.addr"`
	Port        int      `conf:"api.port"`
	AllowedIPs  []string `conf:"api.allowed"`
	CORSOrigins []string `conf:"api.cors"` // Allowed CORS origins ("*" = all).
}

// NodeConfig holds the ledger node endpoint.
type NodeConfig struct {
	URL     string        `conf:"node.url"`
	Timeout time.Duration `conf:"node.timeout"`
}

// ConstructionConfig holds construction settings.
type ConstructionConfig struct {
	Tag bool `conf:"construction.tag"` // Attach the network tag payload to built essences
}

// LedgerConfig bounds ledger reads.
type LedgerConfig struct {
	Attempts    int `conf:"ledger.attempts"`    // Consistent-read attempts before giving up
	Concurrency int `conf:"ledger.concurrency"` // Parallel output lookups per request
}

// CacheConfig controls the persistent spent-output cache.
type CacheConfig struct {
	Enabled bool `conf:"cache.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Online reports whether the gateway runs in online mode.
func (c *Config) Online() bool {
	return c.Mode != ModeOffline
}

// Params returns the construction parameters for the configured network.
func (c *Config) Params() construction.Params {
	p := construction.MainnetParams()
	if c.Network == Testnet {
		p = construction.TestnetParams()
	}
	if !c.Construction.Tag {
		p.NetworkTag = nil
	}
	return p
}

// ListenAddr returns the API listen address in host:port form.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.API.Addr, strconv.Itoa(c.API.Port))
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-rosetta
//	macOS:   ~/Library/Application Support/KlingnetRosetta
//	Windows: %APPDATA%\KlingnetRosetta
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-rosetta"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetRosetta")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetRosetta")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetRosetta")
	default:
		return filepath.Join(home, ".klingnet-rosetta")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// CacheDir returns the spent-output cache database directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.NetworkDataDir(), "cache")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "rosetta.conf")
}
