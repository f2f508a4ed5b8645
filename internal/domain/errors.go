package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrConnectivity covers stream and RPC disconnects. Retried, never fatal.
	ErrConnectivity = errors.New("connectivity")
	// ErrDecode covers unparseable or irrelevant chain events. Dropped silently.
	ErrDecode = errors.New("decode")
	// ErrOracle covers malformed or unavailable scoring responses.
	ErrOracle = errors.New("oracle")
	// ErrValidation covers unknown tokens and unusable quotes.
	ErrValidation = errors.New("validation")
	// ErrExecution covers simulate and send failures.
	ErrExecution = errors.New("execution")
)

// Error attaches a kind to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Is reports a match against the kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with kind for operation op.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
