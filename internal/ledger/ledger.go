// Package ledger resolves spent-output state from the Klingnet node for
// the construction flow and the data endpoints.
package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Lookup errors.
var (
	ErrOutputNotFound     = errors.New("output not found")
	ErrOutputSpent        = errors.New("output already spent")
	ErrLedgerIndexChanged = errors.New("ledger index advanced during read")
)

// Output is the ledger state of one transaction output.
type Output struct {
	ID          types.OutputID
	Address     types.Address
	Type        tx.OutputType
	Amount      uint64
	Spent       bool
	LedgerIndex uint64 // ledger index at which the state was read
}

// Source looks up outputs by id. Implementations return an error wrapping
// ErrOutputNotFound for unknown outputs.
type Source interface {
	Output(ctx context.Context, id types.OutputID) (*Output, error)
}

// Indexer reports the current ledger index.
type Indexer interface {
	LedgerIndex(ctx context.Context) (uint64, error)
}

// Metadata converts the output into its construction metadata entry.
func (o *Output) Metadata(hrp string) construction.InputMetadata {
	kind := rosetta.KindStandardOutput
	if o.Type == tx.OutputSigLockedDustAllowance {
		kind = rosetta.KindDustAllowanceOutput
	}
	return construction.InputMetadata{
		Address: o.Address.Encode(hrp),
		Amount:  strconv.FormatUint(o.Amount, 10),
		Type:    kind.String(),
	}
}
