package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/api"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient/nodetest"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	cfg.API.Port = 0
	cfg.Log.Level = "error"
	return cfg
}

func post(t *testing.T, g *Gateway, path string, req, resp interface{}) {
	t.Helper()
	body, _ := json.Marshal(req)
	r, err := http.Post("http://"+g.Addr()+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("POST %s: HTTP %d", path, r.StatusCode)
	}
	if err := json.NewDecoder(r.Body).Decode(resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/logs/rosetta.log", filepath.Join(home, "logs/rosetta.log")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandHome(tt.input); got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGateway_Online(t *testing.T) {
	node := nodetest.New("testnet")
	defer node.Close()
	node.AddBlock(1_700_000_000_000)

	cfg := testConfig(t)
	cfg.Node.URL = node.URL()

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer g.Stop()

	var status rosetta.NetworkStatusResponse
	post(t, g, "/network/status", rosetta.NetworkRequest{
		NetworkIdentifier: rosetta.NetworkIdentifier{Blockchain: api.Blockchain, Network: "testnet"},
	}, &status)
	if status.GenesisBlockIdentifier.Hash != nodetest.BlockHash(0).String() {
		t.Errorf("genesis = %+v", status.GenesisBlockIdentifier)
	}

	if _, err := os.Stat(cfg.CacheDir()); err != nil {
		t.Errorf("cache dir not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.LogsDir(), "rosetta.log")); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestGateway_StartupLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "info"

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	g.Stop()

	data, err := os.ReadFile(filepath.Join(cfg.LogsDir(), "rosetta.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if rec["message"] != "Spent output cache ready" {
			continue
		}
		found = true
		if rec["network"] != "testnet" || rec["component"] != "gateway" {
			t.Errorf("record = %v", rec)
		}
		if n, ok := rec["cache_entries"].(float64); !ok || n != 0 {
			t.Errorf("cache_entries = %v, want 0", rec["cache_entries"])
		}
	}
	if !found {
		t.Errorf("no cache record in log:\n%s", data)
	}
}

func TestGateway_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer g.Stop()

	if _, err := os.Stat(cfg.CacheDir()); !os.IsNotExist(err) {
		t.Errorf("cache dir should not exist, stat err = %v", err)
	}
}

func TestGateway_Offline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeOffline
	cfg.Node.URL = ""

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer g.Stop()

	if g.db != nil || g.client != nil {
		t.Error("offline gateway should not open a cache or node client")
	}

	var list rosetta.NetworkListResponse
	post(t, g, "/network/list", rosetta.MetadataRequest{}, &list)
	if len(list.NetworkIdentifiers) != 1 || list.NetworkIdentifiers[0].Network != "testnet" {
		t.Errorf("networks = %+v", list.NetworkIdentifiers)
	}
}
