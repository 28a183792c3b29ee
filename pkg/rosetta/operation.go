package rosetta

import (
	"errors"
	"fmt"
)

// OperationKind is the closed set of operation types the ledger produces.
type OperationKind uint8

const (
	KindInput OperationKind = iota
	KindStandardOutput
	KindDustAllowanceOutput
)

// Wire names of the operation kinds.
const (
	OpTypeInput               = "INPUT"
	OpTypeStandardOutput      = "SIG_LOCKED_SINGLE_OUTPUT"
	OpTypeDustAllowanceOutput = "SIG_LOCKED_DUST_ALLOWANCE_OUTPUT"
)

// ErrUnknownOperationType is returned for an operation type string outside
// the supported set.
var ErrUnknownOperationType = errors.New("unknown operation type")

// OperationTypes lists every wire name, in kind order.
var OperationTypes = []string{OpTypeInput, OpTypeStandardOutput, OpTypeDustAllowanceOutput}

// String returns the wire name of the kind.
func (k OperationKind) String() string {
	switch k {
	case KindInput:
		return OpTypeInput
	case KindStandardOutput:
		return OpTypeStandardOutput
	case KindDustAllowanceOutput:
		return OpTypeDustAllowanceOutput
	default:
		return fmt.Sprintf("OperationKind(%d)", uint8(k))
	}
}

// IsOutput reports whether the kind creates an output.
func (k OperationKind) IsOutput() bool {
	return k == KindStandardOutput || k == KindDustAllowanceOutput
}

// ParseOperationKind maps a wire name to its kind.
func ParseOperationKind(s string) (OperationKind, error) {
	switch s {
	case OpTypeInput:
		return KindInput, nil
	case OpTypeStandardOutput:
		return KindStandardOutput, nil
	case OpTypeDustAllowanceOutput:
		return KindDustAllowanceOutput, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperationType, s)
	}
}
