package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// OutputIDSize is the length of an output id: transaction id plus a
// little-endian uint16 output index.
const OutputIDSize = HashSize + 2

// OutputIDHexLen is the length of the hex form of an output id.
const OutputIDHexLen = OutputIDSize * 2

// OutputID references a specific output of a transaction.
type OutputID struct {
	TxID  Hash
	Index uint16
}

// Bytes returns the 34-byte serialized form.
func (o OutputID) Bytes() []byte {
	b := make([]byte, OutputIDSize)
	copy(b, o.TxID[:])
	binary.LittleEndian.PutUint16(b[HashSize:], o.Index)
	return b
}

// String returns the 68-character hex form.
func (o OutputID) String() string {
	return hex.EncodeToString(o.Bytes())
}

// ParseOutputID parses the hex form of an output id.
func ParseOutputID(s string) (OutputID, error) {
	if len(s) != OutputIDHexLen {
		return OutputID{}, fmt.Errorf("output id must be %d hex characters, got %d", OutputIDHexLen, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return OutputID{}, fmt.Errorf("invalid hex: %w", err)
	}
	var o OutputID
	copy(o.TxID[:], b[:HashSize])
	o.Index = binary.LittleEndian.Uint16(b[HashSize:])
	return o, nil
}

// MarshalJSON encodes the output id as a hex string.
func (o OutputID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes a hex string into an output id.
func (o *OutputID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutputID(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
