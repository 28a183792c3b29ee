package rosetta

import (
	"errors"
	"fmt"
)

// Catalog sentinels. Failures wrapping these map onto dedicated wire codes.
var (
	ErrWrongNetwork    = errors.New("network identifier does not match the served network")
	ErrOffline         = errors.New("not available in offline mode")
	ErrNodeUnavailable = errors.New("ledger node unavailable")
	ErrBlockNotFound   = errors.New("block not found")
)

// Wire error codes.
const (
	CodeWrongNetwork   int32 = 1
	CodeOffline        int32 = 2
	CodeInvalidRequest int32 = 3
	CodeLedgerState    int32 = 4
	CodeNodeError      int32 = 5
	CodeBlockNotFound  int32 = 6
	CodeInternal       int32 = 7
)

// Error is the wire error body.
type Error struct {
	Code        int32                  `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Retriable   bool                   `json:"retriable"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface so clients can return wire errors directly.
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("rosetta error %d: %s: %s", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("rosetta error %d: %s", e.Code, e.Message)
}

// Catalog is the full list of errors the gateway can return, in code order.
var Catalog = []*Error{
	{Code: CodeWrongNetwork, Message: "wrong network"},
	{Code: CodeOffline, Message: "endpoint unavailable offline"},
	{Code: CodeInvalidRequest, Message: "invalid request"},
	{Code: CodeLedgerState, Message: "ledger state unavailable", Retriable: true},
	{Code: CodeNodeError, Message: "node error", Retriable: true},
	{Code: CodeBlockNotFound, Message: "block not found"},
	{Code: CodeInternal, Message: "internal error"},
}

// Kind classifies a failure by whether retrying may succeed.
type Kind uint8

const (
	// KindNonRetriable marks input that will never succeed unmodified.
	KindNonRetriable Kind = iota
	// KindRetriable marks a transient ledger-state condition.
	KindRetriable
)

// Failure is a classified error naming the request field at fault.
type Failure struct {
	Kind  Kind
	Field string
	Err   error
}

// Error renders "<field>: <reason>".
func (f *Failure) Error() string {
	if f.Field == "" {
		return f.Err.Error()
	}
	return f.Field + ": " + f.Err.Error()
}

// Unwrap returns the wrapped error.
func (f *Failure) Unwrap() error { return f.Err }

// NonRetriable wraps err as a non-retriable failure of field.
func NonRetriable(field string, err error) error {
	return &Failure{Kind: KindNonRetriable, Field: field, Err: err}
}

// Retriable wraps err as a retriable failure of field.
func Retriable(field string, err error) error {
	return &Failure{Kind: KindRetriable, Field: field, Err: err}
}

// IsRetriable reports whether err carries a retriable failure.
func IsRetriable(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == KindRetriable
}

// ToError maps err onto the wire error catalog. Unclassified errors become
// internal errors.
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	var wire *Error
	if errors.As(err, &wire) {
		return wire
	}

	code := CodeInternal
	var f *Failure
	switch {
	case errors.Is(err, ErrWrongNetwork):
		code = CodeWrongNetwork
	case errors.Is(err, ErrOffline):
		code = CodeOffline
	case errors.Is(err, ErrBlockNotFound):
		code = CodeBlockNotFound
	case errors.Is(err, ErrNodeUnavailable):
		code = CodeNodeError
	case errors.As(err, &f) && f.Kind == KindRetriable:
		code = CodeLedgerState
	case errors.As(err, &f):
		code = CodeInvalidRequest
	}

	entry := Catalog[code-1]
	out := &Error{
		Code:        entry.Code,
		Message:     entry.Message,
		Description: err.Error(),
		Retriable:   entry.Retriable,
	}
	if errors.As(err, &f) && f.Field != "" {
		out.Details = map[string]interface{}{"field": f.Field}
	}
	return out
}
