// Package jailerrors implements the error taxonomy of §7: a small set of
// abstract error kinds that every component maps its failures onto, plus
// the stack-trace-bearing wrapper used for errors that reach the CLI.
package jailerrors

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind is one of the abstract error categories of §7.
type Kind int

const (
	// KindClassification covers workspace-unreadable failures (§4.A).
	KindClassification Kind = iota
	// KindPlanning covers invalid ecosystem/agent stacks (§4.B), e.g. two agent tags.
	KindPlanning
	// KindBuild covers runtime-reported build failures (§4.B).
	KindBuild
	// KindRuntimeState covers a container in the wrong state for the requested operation (§4.C).
	KindRuntimeState
	// KindEgress covers egress-filter failures that degrade to FailedOpen (§4.E).
	KindEgress
	// KindHelperProtocol covers malformed helper requests/validation failures (§6.2).
	KindHelperProtocol
)

func (k Kind) String() string {
	switch k {
	case KindClassification:
		return "classification"
	case KindPlanning:
		return "planning"
	case KindBuild:
		return "build"
	case KindRuntimeState:
		return "runtime-state"
	case KindEgress:
		return "egress"
	case KindHelperProtocol:
		return "helper-protocol"
	default:
		return "unknown"
	}
}

// ExitCode maps a Kind to the orchestrator's process exit code (§7:
// "0 success; non-zero distinct values for classification/build/runtime/helper errors").
func (k Kind) ExitCode() int {
	switch k {
	case KindClassification:
		return 2
	case KindPlanning:
		return 3
	case KindBuild:
		return 4
	case KindRuntimeState:
		return 5
	case KindEgress:
		return 6
	case KindHelperProtocol:
		return 7
	default:
		return 1
	}
}

// TaggedError carries a Kind so that calling code has an easier job
// distinguishing error categories, adapted from the teacher's ComplexError.
type TaggedError struct {
	Kind    Kind
	Subject string // the offending path / layer name / tag set, per §7
	Err     error
	frame   xerrors.Frame
}

func (e *TaggedError) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", e.Kind, e.Message())
	e.frame.Format(p)
	return e.Err
}

func (e *TaggedError) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

func (e *TaggedError) Message() string {
	if e.Subject == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Subject)
}

func (e *TaggedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message())
}

func (e *TaggedError) Unwrap() error {
	return e.Err
}

// New builds a TaggedError of the given kind, naming the offending subject.
func New(kind Kind, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &TaggedError{Kind: kind, Subject: subject, Err: err, frame: xerrors.Caller(1)}
}

// As reports whether err (or one it wraps) is a TaggedError of the given kind.
func As(err error, kind Kind) bool {
	var tagged *TaggedError
	if xerrors.As(err, &tagged) {
		return tagged.Kind == kind
	}
	return false
}

// WrapStack wraps err for the sake of showing a stack trace at the top
// level. go-errors does not return nil when wrapping a non-error, so we
// guard that here, exactly as the teacher's WrapError does.
func WrapStack(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, 0)
}
