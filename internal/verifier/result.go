package verifier

import (
	"errors"

	tt "github.com/gnolang/fixverify/internal/types"
)

// ErrCancelled is returned by Result.Err for cancelled runs.
var ErrCancelled = errors.New("verification cancelled")

type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "PASS"
	case OutcomeFail:
		return "FAIL"
	case OutcomeCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// AppliedAction identifies the action applied in an iteration.
type AppliedAction struct {
	Title          string
	EquivalenceKey string
}

// TrailEntry records one iteration: the diagnostics observed on the
// document at Version and, if the iteration got that far, the applied action.
type TrailEntry struct {
	Version     int
	Diagnostics tt.DiagnosticSet
	Applied     *AppliedAction
}

// Result is the outcome of a verification run.
type Result struct {
	Outcome Outcome
	Failure *Failure
	Trail   []TrailEntry

	// Final is the final document on success, otherwise the last document
	// that passed every guard.
	Final tt.Document

	// Actual is the text compared against the expected text, if any.
	Actual string
}

func (r *Result) Passed() bool { return r.Outcome == OutcomePass }

// Err returns nil for passing runs, ErrCancelled for cancelled runs and the
// Failure otherwise.
func (r *Result) Err() error {
	switch r.Outcome {
	case OutcomePass:
		return nil
	case OutcomeCancelled:
		return ErrCancelled
	default:
		return r.Failure
	}
}

// AppliedCount is the number of fixes that were applied.
func (r *Result) AppliedCount() int {
	n := 0
	for _, e := range r.Trail {
		if e.Applied != nil {
			n++
		}
	}
	return n
}

func (r *Result) record(version int, set tt.DiagnosticSet, applied *AppliedAction) {
	r.Trail = append(r.Trail, TrailEntry{Version: version, Diagnostics: set, Applied: applied})
}

func (r *Result) fail(f *Failure) *Result {
	r.Outcome = OutcomeFail
	r.Failure = f
	return r
}

func (r *Result) cancel() *Result {
	r.Outcome = OutcomeCancelled
	r.Failure = nil
	return r
}
