package construction

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// ProjectUnsigned reconstructs the operations of an unsigned envelope.
// An unsigned essence has no transaction id yet, so online projection only
// adds the operation status.
func ProjectUnsigned(p Params, env *UnsignedEnvelope, online bool) ([]rosetta.Operation, error) {
	return projectEssence(p, env.Essence, env.InputsMetadata, nil, online)
}

// ProjectSigned reconstructs the operations of a signed envelope and the
// signer addresses, one per Signature unlock block in unlock order.
func ProjectSigned(p Params, env *SignedEnvelope, online bool) ([]rosetta.Operation, []rosetta.AccountIdentifier, error) {
	var txID *types.Hash
	if online {
		id := env.Transaction.ID()
		txID = &id
	}
	ops, err := projectEssence(p, env.Transaction.Essence, env.InputsMetadata, txID, online)
	if err != nil {
		return nil, nil, err
	}
	return ops, Signers(p, env.Transaction), nil
}

// ProjectTransaction projects a confirmed transaction, with spent outputs
// described by meta.
func ProjectTransaction(p Params, t *tx.Transaction, meta InputsMetadata) ([]rosetta.Operation, error) {
	id := t.ID()
	return projectEssence(p, t.Essence, meta, &id, true)
}

// Signers recovers the signing addresses of t. Reference blocks add no
// identity and are skipped.
func Signers(p Params, t *tx.Transaction) []rosetta.AccountIdentifier {
	var out []rosetta.AccountIdentifier
	for _, u := range t.Unlocks {
		if u.Type != tx.UnlockSignature {
			continue
		}
		addr := crypto.AddressFromPubKey(u.PublicKey)
		out = append(out, rosetta.AccountIdentifier{Address: addr.Encode(p.HRP)})
	}
	return out
}

// projectEssence emits inputs then outputs, each in essence order. Coin
// creation is annotated only when txID is known.
func projectEssence(p Params, e *tx.Essence, meta InputsMetadata, txID *types.Hash, online bool) ([]rosetta.Operation, error) {
	ops := make([]rosetta.Operation, 0, len(e.Inputs)+len(e.Outputs))
	var status *string
	if online {
		s := rosetta.StatusSuccess
		status = &s
	}

	for _, in := range e.Inputs {
		key := in.OutputID.String()
		m, ok := meta[key]
		if !ok {
			return nil, rosetta.NonRetriable("inputs_metadata", fmt.Errorf("%w: %s", ErrMissingMetadata, key))
		}
		_, v, err := parseAmount(m.Amount)
		if err != nil {
			return nil, rosetta.NonRetriable("inputs_metadata."+key+".amount", err)
		}
		ops = append(ops, rosetta.Operation{
			OperationIdentifier: rosetta.OperationIdentifier{Index: int64(len(ops))},
			Type:                rosetta.OpTypeInput,
			Status:              status,
			Account:             &rosetta.AccountIdentifier{Address: m.Address},
			Amount:              &rosetta.Amount{Value: formatAmount(true, v), Currency: p.Currency},
			CoinChange: &rosetta.CoinChange{
				CoinIdentifier: rosetta.CoinIdentifier{Identifier: key},
				CoinAction:     rosetta.CoinSpent,
			},
		})
	}

	for i, out := range e.Outputs {
		op := rosetta.Operation{
			OperationIdentifier: rosetta.OperationIdentifier{Index: int64(len(ops))},
			Type:                operationKind(out.Type).String(),
			Status:              status,
			Account:             &rosetta.AccountIdentifier{Address: out.Address.Encode(p.HRP)},
			Amount:              &rosetta.Amount{Value: formatAmount(false, out.Amount), Currency: p.Currency},
		}
		if txID != nil {
			id := types.OutputID{TxID: *txID, Index: uint16(i)}
			op.CoinChange = &rosetta.CoinChange{
				CoinIdentifier: rosetta.CoinIdentifier{Identifier: id.String()},
				CoinAction:     rosetta.CoinCreated,
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}
