package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads gateway configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "mode":
		cfg.Mode = Mode(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// API
	case "api.addr":
		cfg.API.Addr = value
	case "api.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.API.Port = port
	case "api.allowed":
		cfg.API.AllowedIPs = parseStringList(value)
	case "api.cors":
		cfg.API.CORSOrigins = parseStringList(value)

	// Node
	case "node.url":
		cfg.Node.URL = value
	case "node.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Node.Timeout = d

	// Construction
	case "construction.tag":
		cfg.Construction.Tag = parseBool(value)

	// Ledger
	case "ledger.attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.Attempts = n
	case "ledger.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.Concurrency = n

	// Cache
	case "cache.enabled", "cache":
		cfg.Cache.Enabled = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default gateway configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# Klingnet Rosetta Gateway Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Mode: online, or offline for an air-gapped construction signer
mode = online

# Data directory (default: ~/.klingnet-rosetta)
# datadir = ~/.klingnet-rosetta

# ============================================================================
# Rosetta API
# ============================================================================

api.addr = 127.0.0.1
api.port = ` + strconv.Itoa(def.API.Port) + `
api.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# api.cors = http://localhost:3000

# ============================================================================
# Ledger Node
# ============================================================================

node.url = ` + def.Node.URL + `
node.timeout = 10s

# ============================================================================
# Construction
# ============================================================================

# Attach the network tag payload to every constructed transaction
construction.tag = true

# ============================================================================
# Ledger Reads
# ============================================================================

# Consistent-read attempts for balance and coin lookups
ledger.attempts = 3

# Parallel output lookups per metadata request
ledger.concurrency = 8

# Cache spent outputs on disk for block projection
cache.enabled = true

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
