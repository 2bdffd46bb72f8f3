// Package errkind defines the closed set of failure kinds harness can abort
// with and how each maps to a process exit code.
package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind string

const (
	ConfigInvalid         Kind = "ConfigInvalid"
	PlanInvalid           Kind = "PlanInvalid"
	WorkingTreeDirty      Kind = "WorkingTreeDirty"
	SelectorMisuse        Kind = "SelectorMisuse"
	ForbiddenToolAccess   Kind = "ForbiddenToolAccess"
	RollbackWriteFailed   Kind = "RollbackWriteFailed"
	BucketPenaltyExceeded Kind = "BucketPenaltyExceeded"
	NotGitRepo            Kind = "NotGitRepo"
	PathNotFound          Kind = "PathNotFound"
	ConfirmationRequired  Kind = "ConfirmationRequired"
	Internal              Kind = "Internal"
)

// Exit codes shared by every command.
const (
	ExitOK       = 0
	ExitWarning  = 1
	ExitBlocking = 2
	ExitRuntime  = 3
)

// Error is a failure tagged with a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind, so sentinel comparisons like
// errors.Is(err, errkind.New(errkind.PlanInvalid, "")) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind and a message. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Has reports whether err carries the given kind.
func Has(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps an error to a process exit code. nil maps to ExitOK; every
// failure kind aborts with ExitRuntime.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitRuntime
}

// Line formats err as the single stderr line printed on abort.
func Line(err error) string {
	return fmt.Sprintf("harness: %s: %s", KindOf(err), message(err))
}

func message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
