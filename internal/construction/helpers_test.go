package construction

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

var testParams = TestnetParams()

type testAccount struct {
	key  *crypto.PrivateKey
	addr string
}

func newTestAccount(t *testing.T) testAccount {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return testAccount{key: key, addr: crypto.AddressFromPubKey(key.PublicKey()).Encode(testParams.HRP)}
}

func testOutputID(b byte, index uint16) types.OutputID {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	return types.OutputID{TxID: h, Index: index}
}

func inputOp(index int, id types.OutputID, addr, value string) rosetta.Operation {
	op := rosetta.Operation{
		OperationIdentifier: rosetta.OperationIdentifier{Index: int64(index)},
		Type:                rosetta.OpTypeInput,
		Account:             &rosetta.AccountIdentifier{Address: addr},
		CoinChange: &rosetta.CoinChange{
			CoinIdentifier: rosetta.CoinIdentifier{Identifier: id.String()},
			CoinAction:     rosetta.CoinSpent,
		},
	}
	if value != "" {
		op.Amount = &rosetta.Amount{Value: value, Currency: testParams.Currency}
	}
	return op
}

func outputOp(index int, opType, addr, value string) rosetta.Operation {
	return rosetta.Operation{
		OperationIdentifier: rosetta.OperationIdentifier{Index: int64(index)},
		Type:                opType,
		Account:             &rosetta.AccountIdentifier{Address: addr},
		Amount:              &rosetta.Amount{Value: value, Currency: testParams.Currency},
	}
}

func metaEntry(addr, amount string) InputMetadata {
	return InputMetadata{Address: addr, Amount: amount, Type: rosetta.OpTypeStandardOutput}
}

func signFor(t *testing.T, acct testAccount, hash types.Hash) rosetta.Signature {
	t.Helper()
	sig, err := acct.key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return rosetta.Signature{
		SigningPayload: rosetta.SigningPayload{
			AccountIdentifier: &rosetta.AccountIdentifier{Address: acct.addr},
			HexBytes:          hash.String(),
			SignatureType:     rosetta.SignatureSchnorr,
		},
		PublicKey:     rosetta.PublicKey{HexBytes: hex.EncodeToString(acct.key.PublicKey()), CurveType: rosetta.CurveSecp256k1},
		SignatureType: rosetta.SignatureSchnorr,
		HexBytes:      hex.EncodeToString(sig),
	}
}

// requireNonRetriable fails unless err is a non-retriable failure whose
// message mentions field.
func requireNonRetriable(t *testing.T, err error, field string) *rosetta.Failure {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var f *rosetta.Failure
	if !errors.As(err, &f) {
		t.Fatalf("error %T %v is not a *rosetta.Failure", err, err)
	}
	if f.Kind != rosetta.KindNonRetriable {
		t.Errorf("failure kind = %d, want non-retriable", f.Kind)
	}
	if field != "" && f.Field != field {
		t.Errorf("failure field = %q, want %q", f.Field, field)
	}
	return f
}
