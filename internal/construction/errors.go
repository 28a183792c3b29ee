package construction

import "errors"

// Construction errors. They reach callers wrapped in a rosetta.Failure
// naming the offending field.
var (
	ErrNoOperations         = errors.New("no operations")
	ErrOperationIndex       = errors.New("operation index does not match its position")
	ErrMissingCoinChange    = errors.New("input requires a coin change")
	ErrCoinAction           = errors.New("input coin action must be coin_spent")
	ErrCoinIdentifier       = errors.New("malformed coin identifier")
	ErrMissingAccount       = errors.New("operation requires an account")
	ErrAddress              = errors.New("address is not a ledger-native address")
	ErrMissingAmount        = errors.New("operation requires an amount")
	ErrAmount               = errors.New("amount is not an integer")
	ErrAmountSign           = errors.New("amount has the wrong sign")
	ErrAmountOverflow       = errors.New("amount total overflows")
	ErrCurrency             = errors.New("unsupported currency")
	ErrDuplicateInput       = errors.New("input spends the same output twice")
	ErrDuplicateOutput      = errors.New("identical output given twice")
	ErrNoInputs             = errors.New("at least one input operation is required")
	ErrNoOutputs            = errors.New("at least one output operation is required")
	ErrMissingMetadata      = errors.New("missing metadata for input")
	ErrAccountMismatch      = errors.New("input account does not own the spent output")
	ErrAmountMismatch       = errors.New("input amount does not match the spent output")
	ErrUnbalanced           = errors.New("input and output totals differ")
	ErrEssenceMismatch      = errors.New("operations do not match the prepared transaction")
	ErrUnsupportedEssence   = errors.New("unsupported essence type")
	ErrSignatureCount       = errors.New("more signatures than inputs")
	ErrMissingSignerAddress = errors.New("signature is missing its signing address")
	ErrMissingSignature     = errors.New("missing signature for an input")
	ErrUnusedSignature      = errors.New("signature does not belong to any input owner")
	ErrConflictingSignature = errors.New("conflicting signatures for one address")
	ErrSignatureType        = errors.New("unsupported signature type")
	ErrCurveType            = errors.New("unsupported curve type")
	ErrPublicKey            = errors.New("malformed public key")
	ErrSignature            = errors.New("malformed signature")
	ErrPublicKeyMismatch    = errors.New("public key does not hash to the signing address")
	ErrPayloadMismatch      = errors.New("signature is over a different payload")
	ErrInvalidSignature     = errors.New("signature does not verify")
	ErrEnvelope             = errors.New("malformed transaction envelope")
	ErrEnvelopeVersion      = errors.New("unsupported envelope version")
	ErrEnvelopeKind         = errors.New("wrong envelope kind")
	ErrOptions              = errors.New("malformed options")
)
