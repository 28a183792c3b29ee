package construction

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
)

// EnvelopeVersion is the only envelope version this codec reads and writes.
const EnvelopeVersion = 1

// fieldEnvelope names envelope decoding failures.
const fieldEnvelope = "transaction"

// UnsignedEnvelope carries an essence and the metadata cache between flow
// steps.
type UnsignedEnvelope struct {
	Essence        *tx.Essence
	InputsMetadata InputsMetadata
}

// SignedEnvelope carries a signed transaction and the metadata cache.
type SignedEnvelope struct {
	Transaction    *tx.Transaction
	InputsMetadata InputsMetadata
}

// envelope is the JSON body of both envelope kinds. Exactly one of
// Essence and Transaction is set.
type envelope struct {
	Version        int            `json:"version"`
	Essence        string         `json:"essence,omitempty"`
	Transaction    string         `json:"transaction,omitempty"`
	InputsMetadata InputsMetadata `json:"inputs_metadata"`
}

func encodeEnvelope(env envelope) (string, error) {
	env.Version = EnvelopeVersion
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func decodeEnvelope(s string) (*envelope, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: %v", ErrEnvelope, err))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: %v", ErrEnvelope, err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: trailing data", ErrEnvelope))
	}
	if env.Version != EnvelopeVersion {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: %d", ErrEnvelopeVersion, env.Version))
	}
	return &env, nil
}

// EncodeUnsigned serializes an unsigned envelope to its hex wire form.
func EncodeUnsigned(env *UnsignedEnvelope) (string, error) {
	return encodeEnvelope(envelope{
		Essence:        hex.EncodeToString(env.Essence.Bytes()),
		InputsMetadata: env.InputsMetadata,
	})
}

// DecodeUnsigned parses the hex wire form of an unsigned envelope.
func DecodeUnsigned(s string) (*UnsignedEnvelope, error) {
	env, err := decodeEnvelope(s)
	if err != nil {
		return nil, err
	}
	if env.Essence == "" || env.Transaction != "" {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: want unsigned", ErrEnvelopeKind))
	}
	raw, err := hex.DecodeString(env.Essence)
	if err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".essence", fmt.Errorf("%w: %v", ErrEnvelope, err))
	}
	essence, err := tx.DecodeEssence(raw)
	if err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".essence", err)
	}
	if err := essence.Validate(); err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".essence", err)
	}
	return &UnsignedEnvelope{Essence: essence, InputsMetadata: env.InputsMetadata}, nil
}

// EncodeSigned serializes a signed envelope to its hex wire form.
func EncodeSigned(env *SignedEnvelope) (string, error) {
	return encodeEnvelope(envelope{
		Transaction:    hex.EncodeToString(env.Transaction.Bytes()),
		InputsMetadata: env.InputsMetadata,
	})
}

// DecodeSigned parses the hex wire form of a signed envelope.
func DecodeSigned(s string) (*SignedEnvelope, error) {
	env, err := decodeEnvelope(s)
	if err != nil {
		return nil, err
	}
	if env.Transaction == "" || env.Essence != "" {
		return nil, rosetta.NonRetriable(fieldEnvelope, fmt.Errorf("%w: want signed", ErrEnvelopeKind))
	}
	raw, err := hex.DecodeString(env.Transaction)
	if err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".transaction", fmt.Errorf("%w: %v", ErrEnvelope, err))
	}
	transaction, err := tx.DecodeTransaction(raw)
	if err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".transaction", err)
	}
	if err := transaction.Validate(); err != nil {
		return nil, rosetta.NonRetriable(fieldEnvelope+".transaction", err)
	}
	return &SignedEnvelope{Transaction: transaction, InputsMetadata: env.InputsMetadata}, nil
}
