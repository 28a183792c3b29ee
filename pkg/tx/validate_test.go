package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
)

func TestEssence_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Essence)
		wantErr error
	}{
		{"valid", func(e *Essence) {}, nil},
		{"no inputs", func(e *Essence) { e.Inputs = nil }, ErrNoInputs},
		{"no outputs", func(e *Essence) { e.Outputs = nil }, ErrNoOutputs},
		{"unsorted", func(e *Essence) { e.Inputs[0], e.Inputs[1] = e.Inputs[1], e.Inputs[0] }, ErrNotSorted},
		{"duplicate input", func(e *Essence) { e.Inputs[1] = e.Inputs[0] }, ErrDuplicateInput},
		{"unknown output", func(e *Essence) { e.Outputs[0].Type = 7 }, ErrUnknownOutput},
		{"long index", func(e *Essence) { e.Payload.Index = make([]byte, MaxIndexLength+1) }, ErrIndexTooLong},
		{"too many inputs", func(e *Essence) {
			e.Inputs = make([]Input, MaxInputs+1)
			for i := range e.Inputs {
				e.Inputs[i] = testInput(0x01, uint16(i))
			}
		}, ErrTooManyInputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEssence()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_Validate_SingleSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	transaction := signedTx(t, testEssence(), key)

	if err := transaction.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := transaction.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures() error: %v", err)
	}
	if transaction.Unlocks[1].Type != UnlockReference || transaction.Unlocks[1].Reference != 0 {
		t.Errorf("second unlock = %+v, want reference to 0", transaction.Unlocks[1])
	}
}

func TestTransaction_Validate_TwoSigners(t *testing.T) {
	key1, _ := crypto.GenerateKey()
	key2, _ := crypto.GenerateKey()
	transaction := signedTx(t, testEssence(), key1, key2)

	if err := transaction.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := transaction.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures() error: %v", err)
	}
}

func TestTransaction_Validate_Unlocks(t *testing.T) {
	key, _ := crypto.GenerateKey()

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{"count mismatch", func(tx *Transaction) { tx.Unlocks = tx.Unlocks[:1] }, ErrUnlockCount},
		{"forward reference", func(tx *Transaction) {
			tx.Unlocks[0], tx.Unlocks[1] = NewReferenceUnlock(1), tx.Unlocks[0]
		}, ErrBadReference},
		{"self reference", func(tx *Transaction) { tx.Unlocks[1] = NewReferenceUnlock(1) }, ErrBadReference},
		{"duplicate signer", func(tx *Transaction) { tx.Unlocks[1] = tx.Unlocks[0] }, ErrDuplicateSigner},
		{"bad pubkey", func(tx *Transaction) { tx.Unlocks[0].PublicKey = []byte{0x01} }, crypto.ErrPublicKeyEncoding},
		{"unknown unlock", func(tx *Transaction) { tx.Unlocks[1].Type = 9 }, ErrUnknownUnlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transaction := signedTx(t, testEssence(), key)
			tt.mutate(transaction)
			if err := transaction.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_VerifySignatures_WrongEssence(t *testing.T) {
	key, _ := crypto.GenerateKey()
	transaction := signedTx(t, testEssence(), key)
	transaction.Essence.Outputs[0].Amount++

	if err := transaction.VerifySignatures(); !errors.Is(err, ErrInvalidSig) {
		t.Errorf("VerifySignatures() = %v, want ErrInvalidSig", err)
	}
}
