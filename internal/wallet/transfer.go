package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Signing errors.
var (
	ErrNoKey       = errors.New("no key for payload account")
	ErrPayloadHash = errors.New("payload is not a 32-byte hash")
)

// Transfer is a value transfer from wallet coins to one recipient, with
// the remainder returned to a change address.
type Transfer struct {
	Inputs       []Coin
	To           string
	Amount       uint64
	Change       string
	ChangeAmount uint64
}

// PlanTransfer selects coins paying amount to to, with change to change.
func PlanTransfer(coins []Coin, to string, amount uint64, change string) (*Transfer, error) {
	sel, err := SelectCoins(coins, amount)
	if err != nil {
		return nil, err
	}
	return &Transfer{
		Inputs:       sel.Inputs,
		To:           to,
		Amount:       amount,
		Change:       change,
		ChangeAmount: sel.Change,
	}, nil
}

// Operations returns the transfer as construction operations: one input
// per coin, the payment, then change when there is any. Change paid back to
// the recipient is folded into the payment.
func (t *Transfer) Operations(currency rosetta.Currency) []rosetta.Operation {
	ops := make([]rosetta.Operation, 0, len(t.Inputs)+2)
	add := func(op rosetta.Operation) {
		op.OperationIdentifier = rosetta.OperationIdentifier{Index: int64(len(ops))}
		ops = append(ops, op)
	}
	for _, c := range t.Inputs {
		add(rosetta.Operation{
			Type:    rosetta.OpTypeInput,
			Account: &rosetta.AccountIdentifier{Address: c.Owner},
			Amount:  &rosetta.Amount{Value: "-" + strconv.FormatUint(c.Amount, 10), Currency: currency},
			CoinChange: &rosetta.CoinChange{
				CoinIdentifier: rosetta.CoinIdentifier{Identifier: c.ID.String()},
				CoinAction:     rosetta.CoinSpent,
			},
		})
	}
	pay, change := t.Amount, t.ChangeAmount
	if t.Change == t.To {
		pay, change = pay+change, 0
	}
	add(rosetta.Operation{
		Type:    rosetta.OpTypeStandardOutput,
		Account: &rosetta.AccountIdentifier{Address: t.To},
		Amount:  &rosetta.Amount{Value: strconv.FormatUint(pay, 10), Currency: currency},
	})
	if change > 0 {
		add(rosetta.Operation{
			Type:    rosetta.OpTypeStandardOutput,
			Account: &rosetta.AccountIdentifier{Address: t.Change},
			Amount:  &rosetta.Amount{Value: strconv.FormatUint(change, 10), Currency: currency},
		})
	}
	return ops
}

// CoinsFrom converts the coins of an account as listed by the gateway.
func CoinsFrom(owner string, coins []rosetta.Coin) ([]Coin, error) {
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		id, err := types.ParseOutputID(c.CoinIdentifier.Identifier)
		if err != nil {
			return nil, fmt.Errorf("coin %q: %w", c.CoinIdentifier.Identifier, err)
		}
		v, err := strconv.ParseUint(c.Amount.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("coin %s amount: %w", id, err)
		}
		out = append(out, Coin{ID: id, Owner: owner, Amount: v})
	}
	return out, nil
}

// Sign signs every payload with the key of its account. keys is indexed
// by bech32 address.
func Sign(keys map[string]crypto.Signer, payloads []rosetta.SigningPayload) ([]rosetta.Signature, error) {
	sigs := make([]rosetta.Signature, 0, len(payloads))
	for i, p := range payloads {
		if p.AccountIdentifier == nil {
			return nil, fmt.Errorf("payload %d: %w", i, ErrNoKey)
		}
		key, ok := keys[p.AccountIdentifier.Address]
		if !ok {
			return nil, fmt.Errorf("payload %d (%s): %w", i, p.AccountIdentifier.Address, ErrNoKey)
		}
		msg, err := hex.DecodeString(p.HexBytes)
		if err != nil || len(msg) != types.HashSize {
			return nil, fmt.Errorf("payload %d: %w", i, ErrPayloadHash)
		}
		sig, err := key.Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("payload %d: sign: %w", i, err)
		}
		sigs = append(sigs, rosetta.Signature{
			SigningPayload: p,
			PublicKey:      rosetta.PublicKey{HexBytes: hex.EncodeToString(key.PublicKey()), CurveType: rosetta.CurveSecp256k1},
			SignatureType:  rosetta.SignatureSchnorr,
			HexBytes:       hex.EncodeToString(sig),
		})
	}
	return sigs, nil
}
