package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace": zerolog.TraceLevel,
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetOutput_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer SetOutput(os.Stdout, "info")

	Ledger.Debug().Str("output", "abc").Msg("resolved")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "ledger" || rec["output"] != "abc" || rec["message"] != "resolved" {
		t.Errorf("record = %v", rec)
	}
}

func TestSetOutput_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer SetOutput(os.Stdout, "info")

	API.Info().Msg("hidden")
	API.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rosetta.log")
	if err := Init("info", true, path); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	defer SetOutput(os.Stdout, "info")

	Node.Info().Msg("to file")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"component":"node"`) {
		t.Errorf("file content = %q", data)
	}
}

func TestInit_BadFile(t *testing.T) {
	if err := Init("info", false, filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("Init() with an unwritable path should fail")
	}
}
