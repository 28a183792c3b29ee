package construction

import (
	"fmt"
	"math/bits"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Canonicalize turns operations into a canonical unsigned essence and its
// signing hash. Inputs and outputs are sorted by their serialization, so
// the result does not depend on operation order.
//
// When meta is non-nil every input must be present in it, its account must
// own the spent output, any input amount must equal the negated output
// amount, and input and output totals must balance. meta is carried into
// the envelope unchanged.
func Canonicalize(p Params, ops []rosetta.Operation, meta InputsMetadata) (*UnsignedEnvelope, types.Hash, error) {
	if len(ops) == 0 {
		return nil, types.Hash{}, rosetta.NonRetriable("operations", ErrNoOperations)
	}

	essence := &tx.Essence{Type: tx.EssenceTypeRegular}
	seen := make(map[types.OutputID]bool)
	seenOut := make(map[string]bool)
	var totalIn, totalOut uint64

	for i, op := range ops {
		field := fmt.Sprintf("operations[%d]", i)
		if op.OperationIdentifier.Index != int64(i) {
			return nil, types.Hash{}, rosetta.NonRetriable(field+".operation_identifier",
				fmt.Errorf("%w: index %d at position %d", ErrOperationIndex, op.OperationIdentifier.Index, i))
		}
		kind, err := rosetta.ParseOperationKind(op.Type)
		if err != nil {
			return nil, types.Hash{}, rosetta.NonRetriable(field+".type", err)
		}

		switch kind {
		case rosetta.KindInput:
			id, amount, err := canonicalInput(p, field, op, meta)
			if err != nil {
				return nil, types.Hash{}, err
			}
			if seen[id] {
				return nil, types.Hash{}, rosetta.NonRetriable(field+".coin_change.coin_identifier",
					fmt.Errorf("%w: %s", ErrDuplicateInput, id))
			}
			seen[id] = true
			var carry uint64
			if totalIn, carry = bits.Add64(totalIn, amount, 0); carry != 0 {
				return nil, types.Hash{}, rosetta.NonRetriable(field+".amount.value", ErrAmountOverflow)
			}
			essence.Inputs = append(essence.Inputs, tx.Input{OutputID: id})
		case rosetta.KindStandardOutput, rosetta.KindDustAllowanceOutput:
			out, err := canonicalOutput(p, field, kind, op)
			if err != nil {
				return nil, types.Hash{}, err
			}
			key := string(out.Bytes())
			if seenOut[key] {
				return nil, types.Hash{}, rosetta.NonRetriable(field, ErrDuplicateOutput)
			}
			seenOut[key] = true
			var carry uint64
			if totalOut, carry = bits.Add64(totalOut, out.Amount, 0); carry != 0 {
				return nil, types.Hash{}, rosetta.NonRetriable(field+".amount.value", ErrAmountOverflow)
			}
			essence.Outputs = append(essence.Outputs, out)
		default:
			return nil, types.Hash{}, rosetta.NonRetriable(field+".type",
				fmt.Errorf("%w: %s", rosetta.ErrUnknownOperationType, kind))
		}
	}

	if len(essence.Inputs) == 0 {
		return nil, types.Hash{}, rosetta.NonRetriable("operations", ErrNoInputs)
	}
	if len(essence.Outputs) == 0 {
		return nil, types.Hash{}, rosetta.NonRetriable("operations", ErrNoOutputs)
	}
	if meta != nil && totalIn != totalOut {
		return nil, types.Hash{}, rosetta.NonRetriable("operations",
			fmt.Errorf("%w: inputs %d, outputs %d", ErrUnbalanced, totalIn, totalOut))
	}
	if len(p.NetworkTag) > 0 {
		essence.Payload = &tx.Indexation{Index: append([]byte(nil), p.NetworkTag...)}
	}

	essence.Sort()
	if err := essence.Validate(); err != nil {
		return nil, types.Hash{}, rosetta.NonRetriable("operations", err)
	}
	return &UnsignedEnvelope{Essence: essence, InputsMetadata: meta}, essence.SigningHash(), nil
}

// canonicalInput validates an input operation and returns the spent output
// id and, when meta is known, its amount.
func canonicalInput(p Params, field string, op rosetta.Operation, meta InputsMetadata) (types.OutputID, uint64, error) {
	if op.CoinChange == nil {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".coin_change", ErrMissingCoinChange)
	}
	if op.CoinChange.CoinAction != rosetta.CoinSpent {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".coin_change.coin_action",
			fmt.Errorf("%w: got %q", ErrCoinAction, op.CoinChange.CoinAction))
	}
	id, err := types.ParseOutputID(op.CoinChange.CoinIdentifier.Identifier)
	if err != nil {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".coin_change.coin_identifier",
			fmt.Errorf("%w: %v", ErrCoinIdentifier, err))
	}
	if id.String() != op.CoinChange.CoinIdentifier.Identifier {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".coin_change.coin_identifier",
			fmt.Errorf("%w: hex must be lowercase", ErrCoinIdentifier))
	}
	owner, err := operationAccount(p, field, op)
	if err != nil {
		return types.OutputID{}, 0, err
	}

	var stated uint64
	hasAmount := op.Amount != nil
	if hasAmount {
		if err := checkCurrency(p, field, op.Amount); err != nil {
			return types.OutputID{}, 0, err
		}
		neg, v, err := parseAmount(op.Amount.Value)
		if err != nil {
			return types.OutputID{}, 0, rosetta.NonRetriable(field+".amount.value", err)
		}
		if !neg && v != 0 {
			return types.OutputID{}, 0, rosetta.NonRetriable(field+".amount.value",
				fmt.Errorf("%w: input amounts are negative", ErrAmountSign))
		}
		stated = v
	}
	if meta == nil {
		return id, stated, nil
	}

	m, ok := meta[id.String()]
	if !ok {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".coin_change.coin_identifier",
			fmt.Errorf("%w: %s", ErrMissingMetadata, id))
	}
	resolvedOwner, err := types.DecodeAddressHRP(m.Address, p.HRP)
	if err != nil {
		return types.OutputID{}, 0, rosetta.NonRetriable("inputs_metadata."+id.String()+".address",
			fmt.Errorf("%w: %v", ErrAddress, err))
	}
	if resolvedOwner != owner {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".account",
			fmt.Errorf("%w: %s", ErrAccountMismatch, id))
	}
	_, resolved, err := parseAmount(m.Amount)
	if err != nil {
		return types.OutputID{}, 0, rosetta.NonRetriable("inputs_metadata."+id.String()+".amount", err)
	}
	if hasAmount && stated != resolved {
		return types.OutputID{}, 0, rosetta.NonRetriable(field+".amount.value",
			fmt.Errorf("%w: %s holds %d", ErrAmountMismatch, id, resolved))
	}
	return id, resolved, nil
}

// canonicalOutput validates an output operation.
func canonicalOutput(p Params, field string, kind rosetta.OperationKind, op rosetta.Operation) (tx.Output, error) {
	addr, err := operationAccount(p, field, op)
	if err != nil {
		return tx.Output{}, err
	}
	if op.Amount == nil {
		return tx.Output{}, rosetta.NonRetriable(field+".amount", ErrMissingAmount)
	}
	if err := checkCurrency(p, field, op.Amount); err != nil {
		return tx.Output{}, err
	}
	neg, v, err := parseAmount(op.Amount.Value)
	if err != nil {
		return tx.Output{}, rosetta.NonRetriable(field+".amount.value", err)
	}
	if neg {
		return tx.Output{}, rosetta.NonRetriable(field+".amount.value",
			fmt.Errorf("%w: output amounts are non-negative", ErrAmountSign))
	}
	return tx.Output{Type: outputType(kind), Address: addr, Amount: v}, nil
}

func operationAccount(p Params, field string, op rosetta.Operation) (types.Address, error) {
	if op.Account == nil || op.Account.Address == "" {
		return types.Address{}, rosetta.NonRetriable(field+".account", ErrMissingAccount)
	}
	addr, err := types.DecodeAddressHRP(op.Account.Address, p.HRP)
	if err != nil {
		return types.Address{}, rosetta.NonRetriable(field+".account.address",
			fmt.Errorf("%w: %v", ErrAddress, err))
	}
	if addr.Encode(p.HRP) != op.Account.Address {
		return types.Address{}, rosetta.NonRetriable(field+".account.address",
			fmt.Errorf("%w: must be lowercase", ErrAddress))
	}
	return addr, nil
}

func checkCurrency(p Params, field string, amount *rosetta.Amount) error {
	c := amount.Currency
	if c.Symbol == "" && c.Decimals == 0 {
		return nil
	}
	if c != p.Currency {
		return rosetta.NonRetriable(field+".amount.currency",
			fmt.Errorf("%w: %s/%d", ErrCurrency, c.Symbol, c.Decimals))
	}
	return nil
}

// outputType maps an output operation kind to its ledger output type.
func outputType(kind rosetta.OperationKind) tx.OutputType {
	if kind == rosetta.KindDustAllowanceOutput {
		return tx.OutputSigLockedDustAllowance
	}
	return tx.OutputSigLockedSingle
}

// operationKind maps a ledger output type to its operation kind.
func operationKind(t tx.OutputType) rosetta.OperationKind {
	if t == tx.OutputSigLockedDustAllowance {
		return rosetta.KindDustAllowanceOutput
	}
	return rosetta.KindStandardOutput
}

// RequiredAccounts returns the distinct input accounts of ops, in operation
// order.
func RequiredAccounts(ops []rosetta.Operation) []rosetta.AccountIdentifier {
	var out []rosetta.AccountIdentifier
	seen := make(map[string]bool)
	for _, op := range ops {
		if op.Type != rosetta.OpTypeInput || op.Account == nil || seen[op.Account.Address] {
			continue
		}
		seen[op.Account.Address] = true
		out = append(out, rosetta.AccountIdentifier{Address: op.Account.Address})
	}
	return out
}
