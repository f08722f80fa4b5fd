package verifier

import (
	"fmt"

	tt "github.com/gnolang/fixverify/internal/types"
)

// Kind classifies why a verification run failed.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindNoDiagnosticProduced
	KindStuckLoop
	KindNoFixRegistered
	KindRegression
	KindMismatch
	KindIterationLimit
	KindHost
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindNoDiagnosticProduced:
		return "NoDiagnosticProducedError"
	case KindStuckLoop:
		return "StuckLoopError"
	case KindNoFixRegistered:
		return "NoFixRegisteredError"
	case KindRegression:
		return "RegressionError"
	case KindMismatch:
		return "MismatchError"
	case KindIterationLimit:
		return "IterationLimitError"
	case KindHost:
		return "HostError"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is matching against a Failure's kind.
var (
	ErrConfiguration        = &Failure{Kind: KindConfiguration}
	ErrNoDiagnosticProduced = &Failure{Kind: KindNoDiagnosticProduced}
	ErrStuckLoop            = &Failure{Kind: KindStuckLoop}
	ErrNoFixRegistered      = &Failure{Kind: KindNoFixRegistered}
	ErrRegression           = &Failure{Kind: KindRegression}
	ErrMismatch             = &Failure{Kind: KindMismatch}
	ErrIterationLimit       = &Failure{Kind: KindIterationLimit}
	ErrHost                 = &Failure{Kind: KindHost}
)

// Failure describes why a run did not pass. Regression failures carry the
// diagnostic sets computed before and after the offending mutation.
type Failure struct {
	Kind   Kind
	Reason string
	Before tt.DiagnosticSet
	After  tt.DiagnosticSet
	Cause  error
}

func newFailure(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	if f.Reason == "" {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Is matches any Failure of the same kind.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}
