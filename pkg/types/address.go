package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "kgx"
	TestnetHRP = "tkgx"
)

// ErrWrongHRP is returned when an address belongs to a different network.
var ErrWrongHRP = errors.New("address belongs to another network")

// Address represents a 160-bit address (public key hash).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// Encode returns the bech32 form of the address for the given network HRP
// (e.g. "kgx1...").
func (a Address) Encode(hrp string) string {
	s, err := Bech32Encode(hrp, a[:])
	if err != nil {
		// Only reachable with an invalid HRP, which config validation rejects.
		return hrp + ":" + a.Hex()
	}
	return s
}

// EncodeAddress encodes raw locking-address bytes under a network HRP.
func EncodeAddress(raw []byte, hrp string) (string, error) {
	if len(raw) != AddressSize {
		return "", fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	return Bech32Encode(hrp, raw)
}

// DecodeAddress parses a bech32 address string and returns its HRP and
// raw address.
func DecodeAddress(s string) (string, Address, error) {
	if s == "" {
		return "", Address{}, fmt.Errorf("empty address")
	}
	hrp, data, err := Bech32Decode(s)
	if err != nil {
		return "", Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if len(data) != AddressSize {
		return "", Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	var a Address
	copy(a[:], data)
	return hrp, a, nil
}

// DecodeAddressHRP parses a bech32 address and requires it to carry the
// given HRP.
func DecodeAddressHRP(s, hrp string) (Address, error) {
	got, a, err := DecodeAddress(s)
	if err != nil {
		return Address{}, err
	}
	if got != hrp {
		return Address{}, fmt.Errorf("%w: hrp %q, want %q", ErrWrongHRP, got, hrp)
	}
	return a, nil
}
