package wallet

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

func TestPlanTransfer_Operations(t *testing.T) {
	coins := makeCoins(700, 400)
	tr, err := PlanTransfer(coins, "kgx1to", 1000, "kgx1change")
	if err != nil {
		t.Fatalf("PlanTransfer() error: %v", err)
	}
	if tr.ChangeAmount != 100 {
		t.Errorf("change = %d, want 100", tr.ChangeAmount)
	}

	ops := tr.Operations(construction.Currency())
	if len(ops) != 4 {
		t.Fatalf("got %d operations, want 4", len(ops))
	}
	for i, op := range ops {
		if op.OperationIdentifier.Index != int64(i) {
			t.Errorf("operation %d has index %d", i, op.OperationIdentifier.Index)
		}
	}
	if ops[0].Type != rosetta.OpTypeInput || ops[0].Amount.Value != "-700" || ops[0].CoinChange.CoinAction != rosetta.CoinSpent {
		t.Errorf("first input = %+v", ops[0])
	}
	if ops[2].Account.Address != "kgx1to" || ops[2].Amount.Value != "1000" {
		t.Errorf("payment = %+v", ops[2])
	}
	if ops[3].Account.Address != "kgx1change" || ops[3].Amount.Value != "100" {
		t.Errorf("change = %+v", ops[3])
	}

	exact, _ := PlanTransfer(coins, "kgx1to", 700, "kgx1change")
	if n := len(exact.Operations(construction.Currency())); n != 2 {
		t.Errorf("exact transfer has %d operations, want 2 (no change)", n)
	}
}

func TestPlanTransfer_ChangeToRecipient(t *testing.T) {
	tr, err := PlanTransfer(makeCoins(700), "kgx1self", 350, "kgx1self")
	if err != nil {
		t.Fatalf("PlanTransfer() error: %v", err)
	}
	if tr.ChangeAmount != 350 {
		t.Fatalf("change = %d, want 350", tr.ChangeAmount)
	}

	ops := tr.Operations(construction.Currency())
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
	if ops[1].Account.Address != "kgx1self" || ops[1].Amount.Value != "700" {
		t.Errorf("payment = %+v, want change folded in", ops[1])
	}
}

func TestCoinsFrom(t *testing.T) {
	id := types.OutputID{TxID: types.Hash{0xaa}, Index: 3}
	coins, err := CoinsFrom("kgx1me", []rosetta.Coin{{
		CoinIdentifier: rosetta.CoinIdentifier{Identifier: id.String()},
		Amount:         rosetta.Amount{Value: "42"},
	}})
	if err != nil {
		t.Fatalf("CoinsFrom() error: %v", err)
	}
	if len(coins) != 1 || coins[0].ID != id || coins[0].Amount != 42 || coins[0].Owner != "kgx1me" {
		t.Errorf("coins = %+v", coins)
	}

	if _, err := CoinsFrom("kgx1me", []rosetta.Coin{{CoinIdentifier: rosetta.CoinIdentifier{Identifier: "zz"}}}); err == nil {
		t.Error("bad coin identifier should fail")
	}
	if _, err := CoinsFrom("kgx1me", []rosetta.Coin{{
		CoinIdentifier: rosetta.CoinIdentifier{Identifier: id.String()},
		Amount:         rosetta.Amount{Value: "-1"},
	}}); err == nil {
		t.Error("negative amount should fail")
	}
}

func TestSign(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.AddressFromPubKey(key.PublicKey()).Encode(types.MainnetHRP)
	hash := crypto.Hash([]byte("essence"))
	payload := rosetta.SigningPayload{
		AccountIdentifier: &rosetta.AccountIdentifier{Address: addr},
		HexBytes:          hex.EncodeToString(hash[:]),
		SignatureType:     rosetta.SignatureSchnorr,
	}

	sigs, err := Sign(map[string]crypto.Signer{addr: key}, []rosetta.SigningPayload{payload})
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("got %d signatures", len(sigs))
	}
	raw, _ := hex.DecodeString(sigs[0].HexBytes)
	if !crypto.VerifySignature(hash[:], raw, key.PublicKey()) {
		t.Error("signature does not verify")
	}
	if sigs[0].PublicKey.CurveType != rosetta.CurveSecp256k1 || sigs[0].SignatureType != rosetta.SignatureSchnorr {
		t.Errorf("signature = %+v", sigs[0])
	}

	if _, err := Sign(map[string]crypto.Signer{}, []rosetta.SigningPayload{payload}); !errors.Is(err, ErrNoKey) {
		t.Errorf("unknown account: error = %v", err)
	}
	short := payload
	short.HexBytes = "abcd"
	if _, err := Sign(map[string]crypto.Signer{addr: key}, []rosetta.SigningPayload{short}); !errors.Is(err, ErrPayloadHash) {
		t.Errorf("short payload: error = %v", err)
	}
}

// refusingSigner holds a public key but declines to sign.
type refusingSigner struct{ pub []byte }

var errRefused = errors.New("signing refused")

func (s refusingSigner) Sign([]byte) ([]byte, error) { return nil, errRefused }
func (s refusingSigner) PublicKey() []byte { return s.pub }

func TestSign_SignerError(t *testing.T) {
	hash := crypto.Hash([]byte("essence"))
	addr := crypto.AddressFromPubKey(make([]byte, 33)).Encode(types.MainnetHRP)
	payload := rosetta.SigningPayload{
		AccountIdentifier: &rosetta.AccountIdentifier{Address: addr},
		HexBytes:          hex.EncodeToString(hash[:]),
	}
	_, err := Sign(map[string]crypto.Signer{addr: refusingSigner{pub: make([]byte, 33)}}, []rosetta.SigningPayload{payload})
	if !errors.Is(err, errRefused) {
		t.Errorf("Sign() error = %v, want %v", err, errRefused)
	}
}
