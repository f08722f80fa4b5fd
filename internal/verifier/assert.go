package verifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	tt "github.com/gnolang/fixverify/internal/types"
)

// ExpectedDiagnostic is a diagnostic a test expects the analyzers to report.
// An empty Message matches any message.
type ExpectedDiagnostic struct {
	Span    tt.Span
	Message string
}

// Assertor performs the exact final comparisons of a run.
type Assertor struct {
	Options tt.VerificationOptions
}

// Text requires actual to equal expected byte for byte.
func (a Assertor) Text(expected, actual string) *Failure {
	if expected == actual {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil || diff == "" {
		// difference is invisible to a line diff, e.g. a missing final newline
		diff = fmt.Sprintf("expected: %q\nactual:   %q", expected, actual)
	}
	return newFailure(KindMismatch, "final text does not match expected text\n%s", diff)
}

// Title requires the applied action's title to equal expected.
func (a Assertor) Title(expected, actual string) *Failure {
	if expected == "" || expected == actual {
		return nil
	}
	return newFailure(KindMismatch, "expected code action title %q, got %q", expected, actual)
}

// Diagnostics requires actual to match expected as a set of spans: same
// count, same positions, and same messages when messages are compared.
func (a Assertor) Diagnostics(expected []ExpectedDiagnostic, actual []tt.Diagnostic) *Failure {
	if len(expected) != len(actual) {
		return newFailure(KindMismatch, "expected %d diagnostic(s), got %d\nactual:\n%s",
			len(expected), len(actual), formatDiagnostics(actual))
	}

	exp := make([]ExpectedDiagnostic, len(expected))
	copy(exp, expected)
	sort.SliceStable(exp, func(i, j int) bool { return spanLess(exp[i].Span, exp[j].Span) })

	act := make([]tt.Diagnostic, len(actual))
	copy(act, actual)
	sort.SliceStable(act, func(i, j int) bool { return spanLess(act[i].Primary, act[j].Primary) })

	var problems []string
	for i := range exp {
		if !exp[i].Span.Equal(act[i].Primary) {
			problems = append(problems, fmt.Sprintf("expected diagnostic at %s (%s), got %s (%s)",
				exp[i].Span, exp[i].Span.Hint, act[i].Primary, act[i].Primary.Hint))
			continue
		}
		if a.Options.CompareMessages && exp[i].Message != "" && exp[i].Message != act[i].Message {
			problems = append(problems, fmt.Sprintf("diagnostic at %s: expected message %q, got %q",
				exp[i].Span, exp[i].Message, act[i].Message))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return newFailure(KindMismatch, "%s", strings.Join(problems, "\n"))
}

func spanLess(a, b tt.Span) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}
