package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is the gateway release reported by --version and /network/options.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	Testnet bool
	Mode    string
	Offline bool
	DataDir string
	Config  string

	// API
	APIAddr    string
	APIPort    int
	APIAllowed string
	APICORS    string

	// Node
	NodeURL     string
	NodeTimeout time.Duration

	// Construction
	Tag bool

	// Ledger
	LedgerAttempts    int
	LedgerConcurrency int
	Cache             bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetTag     bool
	SetCache   bool
	SetLogJSON bool
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("rosettad", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolVar(&f.Testnet, "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.Mode, "mode", "", "Gateway mode (online or offline)")
	fs.BoolVar(&f.Offline, "offline", false, "Run offline (shorthand for --mode=offline)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// API
	fs.StringVar(&f.APIAddr, "api-addr", "", "API listen address")
	fs.IntVar(&f.APIPort, "api-port", 0, "API listen port")
	fs.StringVar(&f.APIAllowed, "api-allowed", "", "Allowed IPs for the API")
	fs.StringVar(&f.APICORS, "api-cors", "", "Allowed CORS origins (comma-separated)")

	// Node
	fs.StringVar(&f.NodeURL, "node-url", "", "Ledger node RPC endpoint")
	fs.DurationVar(&f.NodeTimeout, "node-timeout", 0, "Ledger node request timeout")

	// Construction
	fs.BoolVar(&f.Tag, "tag", true, "Attach the network tag payload to constructed transactions")

	// Ledger
	fs.IntVar(&f.LedgerAttempts, "ledger-attempts", 0, "Consistent-read attempts")
	fs.IntVar(&f.LedgerConcurrency, "ledger-concurrency", 0, "Parallel output lookups per request")
	fs.BoolVar(&f.Cache, "cache", true, "Cache spent outputs on disk")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if f.Testnet {
		f.Network = string(Testnet)
	}
	if f.Offline {
		f.Mode = string(ModeOffline)
	}
	f.SetTag = isFlagSet(fs, "tag")
	f.SetCache = isFlagSet(fs, "cache")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// Detect unparsed flags caused by positional arguments stopping the parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.Mode != "" {
		cfg.Mode = Mode(strings.ToLower(f.Mode))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// API
	if f.APIAddr != "" {
		cfg.API.Addr = f.APIAddr
	}
	if f.APIPort != 0 {
		cfg.API.Port = f.APIPort
	}
	if f.APIAllowed != "" {
		cfg.API.AllowedIPs = parseStringList(f.APIAllowed)
	}
	if f.APICORS != "" {
		cfg.API.CORSOrigins = parseStringList(f.APICORS)
	}

	// Node
	if f.NodeURL != "" {
		cfg.Node.URL = f.NodeURL
	}
	if f.NodeTimeout != 0 {
		cfg.Node.Timeout = f.NodeTimeout
	}

	// Construction
	if f.SetTag {
		cfg.Construction.Tag = f.Tag
	}

	// Ledger
	if f.LedgerAttempts != 0 {
		cfg.Ledger.Attempts = f.LedgerAttempts
	}
	if f.LedgerConcurrency != 0 {
		cfg.Ledger.Concurrency = f.LedgerConcurrency
	}
	if f.SetCache {
		cfg.Cache.Enabled = f.Cache
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text to stdout.
func PrintUsage() {
	usage := `Klingnet Rosetta - Rosetta API gateway for the Klingnet ledger

Usage:
  rosettad [options]
  rosettad --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --mode          Gateway mode: online (default) or offline
  --offline       Shorthand for --mode=offline
  --datadir       Data directory (default: ~/.klingnet-rosetta)
  --config, -c    Config file path (default: <datadir>/rosetta.conf)

API Options:
  --api-addr      API listen address (default: 127.0.0.1)
  --api-port      API port (mainnet: 8080, testnet: 8081)
  --api-allowed   Allowed IPs for the API (comma-separated)
  --api-cors      Allowed CORS origins (comma-separated)

Node Options:
  --node-url      Ledger node RPC endpoint (mainnet: http://127.0.0.1:8545)
  --node-timeout  Ledger node request timeout (default: 10s)

Construction Options:
  --tag           Attach the network tag payload (default: true)

Ledger Options:
  --ledger-attempts     Consistent-read attempts (default: 3)
  --ledger-concurrency  Parallel output lookups per request (default: 8)
  --cache               Cache spent outputs on disk (default: true)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Start a mainnet gateway against a local node
  rosettad

  # Start an offline construction signer
  rosettad --offline --testnet
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			PrintUsage()
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Handle help/version
	if flags.Help {
		PrintUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("rosettad version " + Version)
		os.Exit(0)
	}

	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}
	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	cfg, err = load(cfg, flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

func load(cfg *Config, flags *Flags) (*Config, error) {
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags take precedence over the file.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
