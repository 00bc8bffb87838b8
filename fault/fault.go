// Package fault classifies engine errors so the loop can decide between
// retrying, falling back to a default, or accepting state loss.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Transient covers external failures: price/balance lookups and order
	// placement. Skipped and retried on the next tick.
	Transient Kind = iota
	// Config covers unparsable configuration values. The component falls
	// back to a documented default.
	Config
	// Data covers a corrupt or unreadable ledger document. State is
	// reinitialized empty.
	Data
	// Policy covers deliberate no-ops such as an order below the minimum
	// value. Not a failure; may drive an early completion transition.
	Policy
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Config:
		return "config"
	case Data:
		return "data"
	case Policy:
		return "policy"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and the operation that produced it.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted message instead of a wrapped cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind attached to err. Errors without a kind are
// treated as transient: the safe default is to retry next tick.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transient
}

// IsTransient reports whether err should be retried on the next tick.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == Transient
}
