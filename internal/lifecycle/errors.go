package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrGuardViolation         = errors.New("guard violation")
	ErrAlreadyLocked          = errors.New("already saved")
	ErrNotFound               = errors.New("not found")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// TransitionError is returned by every rejected transition. Reason is safe to
// show to the operator; Kind is one of the sentinels above.
type TransitionError struct {
	Op     string
	Reason string
	Kind   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

func guard(op Transition, format string, args ...any) error {
	return &TransitionError{Op: string(op), Reason: fmt.Sprintf(format, args...), Kind: ErrGuardViolation}
}

func locked(op Transition, reason string) error {
	return &TransitionError{Op: string(op), Reason: reason, Kind: ErrAlreadyLocked}
}

func notFound(op Transition, format string, args ...any) error {
	return &TransitionError{Op: string(op), Reason: fmt.Sprintf(format, args...), Kind: ErrNotFound}
}

// Reason returns the operator-facing message for err.
func Reason(err error) string {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Reason
	}
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return "the record store is unavailable, try again"
	case errors.Is(err, ErrConcurrentModification):
		return "the record was changed by someone else, reload and try again"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
