package tx

import (
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// FuzzDecodeTransaction tests that arbitrary bytes never panic the decoder
// and that anything it accepts re-serializes to the same bytes.
func FuzzDecodeTransaction(f *testing.F) {
	e := &Essence{
		Inputs:  []Input{{OutputID: types.OutputID{TxID: types.Hash{0x01}}}},
		Outputs: []Output{{Type: OutputSigLockedSingle, Amount: 1}},
		Payload: &Indexation{Index: []byte("tag")},
	}
	f.Add((&Transaction{Essence: e, Unlocks: []UnlockBlock{NewReferenceUnlock(0)}}).Bytes())
	f.Add(e.Bytes())
	f.Add([]byte{})
	f.Add([]byte{0x00, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		transaction, err := DecodeTransaction(data)
		if err != nil {
			return
		}
		if string(transaction.Bytes()) != string(data) {
			t.Fatalf("re-serialization mismatch")
		}
		// May fail but must not panic.
		_ = transaction.Validate()
		_ = transaction.ID()
	})
}
