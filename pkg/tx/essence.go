// Package tx defines the transaction essence, unlock blocks, and their
// canonical binary serialization.
package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// EssenceType identifies the essence layout.
type EssenceType uint8

// EssenceTypeRegular is the only essence layout the ledger accepts.
const EssenceTypeRegular EssenceType = 0

// InputTypeUTXO marks an input that spends a previous output.
const InputTypeUTXO byte = 0

// AddressTypeKGX marks a 20-byte BLAKE3 public key hash address.
const AddressTypeKGX byte = 0

// OutputType identifies the output variant.
type OutputType uint8

const (
	OutputSigLockedSingle        OutputType = 0 // Standard value transfer
	OutputSigLockedDustAllowance OutputType = 1 // Enables dust outputs to the same address
)

// String returns a human-readable name for the output type.
func (t OutputType) String() string {
	switch t {
	case OutputSigLockedSingle:
		return "SigLockedSingleOutput"
	case OutputSigLockedDustAllowance:
		return "SigLockedDustAllowanceOutput"
	default:
		return fmt.Sprintf("OutputType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known output type.
func (t OutputType) Valid() bool {
	return t == OutputSigLockedSingle || t == OutputSigLockedDustAllowance
}

// PayloadTypeIndexation is the type prefix of an indexation payload.
const PayloadTypeIndexation uint32 = 2

// Structural limits.
const (
	MaxInputs        = 127
	MaxOutputs       = 127
	MaxIndexLength   = 64
	MaxIndexDataSize = 4096
)

// Input spends a previous output.
type Input struct {
	OutputID types.OutputID
}

// Output creates a new UTXO locked to an address.
type Output struct {
	Type    OutputType
	Address types.Address
	Amount  uint64
}

// Indexation is a tag payload attached to an essence. The gateway uses it
// to mark transactions with its network tag.
type Indexation struct {
	Index []byte
	Data  []byte
}

// Essence is the signed body of a transaction.
type Essence struct {
	Type    EssenceType
	Inputs  []Input
	Outputs []Output
	Payload *Indexation
}

// appendInput appends the canonical serialization of an input.
func appendInput(buf []byte, in Input) []byte {
	buf = append(buf, InputTypeUTXO)
	buf = append(buf, in.OutputID.TxID[:]...)
	return binary.LittleEndian.AppendUint16(buf, in.OutputID.Index)
}

// appendOutput appends the canonical serialization of an output.
func appendOutput(buf []byte, out Output) []byte {
	buf = append(buf, byte(out.Type), AddressTypeKGX)
	buf = append(buf, out.Address[:]...)
	return binary.LittleEndian.AppendUint64(buf, out.Amount)
}

// Bytes returns the canonical serialization of the input.
func (in Input) Bytes() []byte {
	return appendInput(nil, in)
}

// Bytes returns the canonical serialization of the output.
func (out Output) Bytes() []byte {
	return appendOutput(nil, out)
}

// Bytes returns the serialized payload, including its type prefix.
func (p *Indexation) Bytes() []byte {
	buf := binary.LittleEndian.AppendUint32(nil, PayloadTypeIndexation)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.Index)))
	buf = append(buf, p.Index...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Data)))
	return append(buf, p.Data...)
}

// Bytes returns the canonical serialization of the essence.
// Format: type(1) | n_in(2) | inputs | n_out(2) | outputs | payload_len(4) | payload
func (e *Essence) Bytes() []byte {
	buf := []byte{byte(e.Type)}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Inputs)))
	for _, in := range e.Inputs {
		buf = appendInput(buf, in)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Outputs)))
	for _, out := range e.Outputs {
		buf = appendOutput(buf, out)
	}
	if e.Payload == nil {
		return binary.LittleEndian.AppendUint32(buf, 0)
	}
	payload := e.Payload.Bytes()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// SigningHash returns the BLAKE3 digest of the essence that every input
// signature commits to.
func (e *Essence) SigningHash() types.Hash {
	return crypto.Hash(e.Bytes())
}

// Sort orders inputs and outputs by the byte order of their serialization.
// Two essences with the same inputs and outputs serialize identically
// after sorting.
func (e *Essence) Sort() {
	sortBySerialization(e.Inputs, Input.Bytes)
	sortBySerialization(e.Outputs, Output.Bytes)
}

// IsSorted reports whether inputs and outputs are in strictly ascending
// serialization order (which also rules out duplicates).
func (e *Essence) IsSorted() bool {
	return strictlyAscending(e.Inputs, Input.Bytes) && strictlyAscending(e.Outputs, Output.Bytes)
}

func strictlyAscending[T any](items []T, ser func(T) []byte) bool {
	for i := 1; i < len(items); i++ {
		if bytes.Compare(ser(items[i-1]), ser(items[i])) >= 0 {
			return false
		}
	}
	return true
}
