package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
)

// Validation errors.
var (
	ErrNoInputs          = errors.New("transaction has no inputs")
	ErrNoOutputs         = errors.New("transaction has no outputs")
	ErrTooManyInputs     = errors.New("too many inputs")
	ErrTooManyOutputs    = errors.New("too many outputs")
	ErrDuplicateInput    = errors.New("duplicate input")
	ErrNotSorted         = errors.New("inputs and outputs must be in canonical order")
	ErrIndexTooLong      = errors.New("indexation index too long")
	ErrIndexDataTooLarge = errors.New("indexation data too large")
	ErrUnlockCount       = errors.New("unlock block count does not match input count")
	ErrBadReference      = errors.New("reference unlock must point at an earlier signature unlock")
	ErrDuplicateSigner   = errors.New("signature unlock repeats an earlier public key")
	ErrInvalidSig        = errors.New("invalid signature")
)

// Validate checks essence structure: counts, canonical ordering, and
// payload bounds. It does not consult the ledger.
func (e *Essence) Validate() error {
	if e.Type != EssenceTypeRegular {
		return fmt.Errorf("%w: %d", ErrUnknownEssence, e.Type)
	}
	if len(e.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(e.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(e.Inputs) > MaxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(e.Inputs), MaxInputs)
	}
	if len(e.Outputs) > MaxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(e.Outputs), MaxOutputs)
	}
	seen := make(map[string]bool, len(e.Inputs))
	for i, in := range e.Inputs {
		key := string(in.OutputID.Bytes())
		if seen[key] {
			return fmt.Errorf("input %d: %w: %s", i, ErrDuplicateInput, in.OutputID)
		}
		seen[key] = true
	}
	for i, out := range e.Outputs {
		if !out.Type.Valid() {
			return fmt.Errorf("output %d: %w: %d", i, ErrUnknownOutput, out.Type)
		}
	}
	if e.Payload != nil {
		if len(e.Payload.Index) > MaxIndexLength {
			return fmt.Errorf("%w: %d bytes, max %d", ErrIndexTooLong, len(e.Payload.Index), MaxIndexLength)
		}
		if len(e.Payload.Data) > MaxIndexDataSize {
			return fmt.Errorf("%w: %d bytes, max %d", ErrIndexDataTooLarge, len(e.Payload.Data), MaxIndexDataSize)
		}
	}
	if !e.IsSorted() {
		return ErrNotSorted
	}
	return nil
}

// Validate checks the essence plus the unlock block invariants: one block
// per input, references only to earlier signature blocks, and no public
// key signing twice.
func (t *Transaction) Validate() error {
	if t.Essence == nil {
		return ErrNoInputs
	}
	if err := t.Essence.Validate(); err != nil {
		return err
	}
	if len(t.Unlocks) != len(t.Essence.Inputs) {
		return fmt.Errorf("%w: %d unlocks, %d inputs", ErrUnlockCount, len(t.Unlocks), len(t.Essence.Inputs))
	}
	seen := make(map[string]bool, len(t.Unlocks))
	for i, u := range t.Unlocks {
		switch u.Type {
		case UnlockSignature:
			if u.Scheme != SchemeSchnorrSecp256k1 {
				return fmt.Errorf("unlock %d: %w: %d", i, ErrUnknownScheme, u.Scheme)
			}
			if err := crypto.ValidatePublicKey(u.PublicKey); err != nil {
				return fmt.Errorf("unlock %d: %w", i, err)
			}
			if err := crypto.ValidateSignature(u.Signature); err != nil {
				return fmt.Errorf("unlock %d: %w", i, err)
			}
			if seen[string(u.PublicKey)] {
				return fmt.Errorf("unlock %d: %w", i, ErrDuplicateSigner)
			}
			seen[string(u.PublicKey)] = true
		case UnlockReference:
			if int(u.Reference) >= i || t.Unlocks[u.Reference].Type != UnlockSignature {
				return fmt.Errorf("unlock %d: %w (ref %d)", i, ErrBadReference, u.Reference)
			}
		default:
			return fmt.Errorf("unlock %d: %w: %d", i, ErrUnknownUnlock, u.Type)
		}
	}
	return nil
}

// VerifySignatures checks every signature unlock against the essence
// signing hash.
func (t *Transaction) VerifySignatures() error {
	hash := t.Essence.SigningHash()
	for i, u := range t.Unlocks {
		if u.Type != UnlockSignature {
			continue
		}
		if !crypto.VerifySignature(hash[:], u.Signature, u.PublicKey) {
			return fmt.Errorf("unlock %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}
