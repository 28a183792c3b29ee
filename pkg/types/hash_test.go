package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHash_IsZero(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero-value Hash should be zero")
	}
	if (Hash{0x01}).IsZero() {
		t.Error("non-zero Hash should not be zero")
	}
}

func TestHash_String(t *testing.T) {
	h := Hash{0xab, 0xcd}
	s := h.String()
	if len(s) != HashSize*2 {
		t.Fatalf("String() length = %d, want %d", len(s), HashSize*2)
	}
	if !strings.HasPrefix(s, "abcd") {
		t.Errorf("String() = %s, want prefix abcd", s)
	}
}

func TestHash_Bytes(t *testing.T) {
	h := Hash{0x01}
	b := h.Bytes()
	b[0] = 0xff
	if h[0] != 0x01 {
		t.Error("Bytes() should return a copy")
	}
}

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", strings.Repeat("ab", HashSize), false},
		{"too short", "abcd", true},
		{"too long", strings.Repeat("ab", HashSize+1), true},
		{"invalid hex", strings.Repeat("zz", HashSize), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HexToHash(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("HexToHash(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestHash_JSON(t *testing.T) {
	h := Hash{0x01, 0x02, 0x03}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Hash
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != h {
		t.Errorf("JSON roundtrip mismatch: %s != %s", got, h)
	}

	if err := json.Unmarshal([]byte(`"nothex"`), &got); err == nil {
		t.Error("expected error for invalid hex")
	}
}
