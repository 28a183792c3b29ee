// Package gateway assembles a Rosetta gateway that can be embedded in any
// binary: logger, spent-output cache, node client and API server.
package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/api"
	"github.com/Klingon-tech/klingnet-rosetta/internal/ledger"
	klog "github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/internal/storage"
)

// Gateway is a fully initialized Rosetta gateway.
type Gateway struct {
	cfg    *config.Config
	logger zerolog.Logger

	db     storage.DB // nil when offline
	client *nodeclient.Client
	server *api.Server
}

// New creates and initializes a gateway. It sets up logging, opens the
// cache and builds the API server, but does not listen. Call Start for
// that.
func New(cfg *config.Config) (*Gateway, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "rosetta.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithNetwork(string(cfg.Network)).With().Str("component", "gateway").Logger()

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("version", config.Version).
		Msg("Starting Klingnet Rosetta gateway")

	g := &Gateway{cfg: cfg, logger: logger}

	// Offline mode never touches the node or the cache.
	if !cfg.Online() {
		g.server = api.New(cfg, nil, nil)
		return g, nil
	}

	// ── 2. Node client ──────────────────────────────────────────────
	g.client = nodeclient.New(cfg.Node.URL, cfg.Node.Timeout)
	logger.Info().
		Str("url", cfg.Node.URL).
		Dur("timeout", cfg.Node.Timeout).
		Msg("Node client ready")

	// ── 3. Spent-output cache ───────────────────────────────────────
	db, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	g.db = db
	outputs := ledger.NewCache(g.client, storage.NewPrefixDB(db, []byte(string(cfg.Network)+"/")))
	if n, err := outputs.Len(); err != nil {
		logger.Warn().Err(err).Msg("Spent output cache unreadable")
	} else {
		logger.Info().Int("cache_entries", n).Bool("persistent", cfg.Cache.Enabled).Msg("Spent output cache ready")
	}

	// ── 4. API server ───────────────────────────────────────────────
	g.server = api.New(cfg, g.client, outputs)
	return g, nil
}

// openCache opens the persistent cache, or an in-memory one when the
// cache is disabled.
func openCache(cfg *config.Config) (storage.DB, error) {
	if !cfg.Cache.Enabled {
		return storage.NewMemory(), nil
	}
	db, err := storage.NewBadger(cfg.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("open cache at %s: %w", cfg.CacheDir(), err)
	}
	klog.Storage.Info().Str("path", cfg.CacheDir()).Msg("Cache opened")
	return db, nil
}

// Start binds the API listener.
func (g *Gateway) Start() error {
	if err := g.server.Start(); err != nil {
		return fmt.Errorf("start api: %w", err)
	}
	return nil
}

// Stop shuts the API down and closes the cache.
func (g *Gateway) Stop() {
	if err := g.server.Stop(); err != nil {
		g.logger.Warn().Err(err).Msg("API shutdown")
	}
	if g.db != nil {
		if err := g.db.Close(); err != nil {
			g.logger.Warn().Err(err).Msg("Cache close")
		}
	}
	g.logger.Info().Msg("Goodbye!")
}

// Addr returns the address the API is listening on.
func (g *Gateway) Addr() string {
	return g.server.Addr()
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
