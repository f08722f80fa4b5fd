package verifier

import (
	"fmt"
	"strings"

	tt "github.com/gnolang/fixverify/internal/types"
)

// RegressionGuard detects diagnostics introduced by a mutation.
//
// Diagnostics are compared as a multiset keyed by id, severity and, when
// messages are compared, message. Spans are left out of the key since any
// textual fix moves the diagnostics that follow it.
type RegressionGuard struct {
	Options tt.VerificationOptions
}

type regressionKey struct {
	id       tt.RuleID
	severity tt.Severity
	message  string
}

func (g RegressionGuard) key(d tt.Diagnostic) regressionKey {
	k := regressionKey{id: d.ID, severity: d.Severity}
	if g.Options.CompareMessages {
		k.message = d.Message
	}
	return k
}

// Introduced returns the diagnostics of after that have no counterpart in
// before, ignoring tolerated severities.
func (g RegressionGuard) Introduced(before, after tt.DiagnosticSet) []tt.Diagnostic {
	remaining := make(map[regressionKey]int, before.Len())
	for _, d := range before.Items() {
		remaining[g.key(d)]++
	}

	var introduced []tt.Diagnostic
	for _, d := range after.Items() {
		k := g.key(d)
		if remaining[k] > 0 {
			remaining[k]--
			continue
		}
		if g.Options.Tolerates(d.Severity) {
			continue
		}
		introduced = append(introduced, d)
	}
	return introduced
}

// Check fails when action introduced a diagnostic.
func (g RegressionGuard) Check(before, after tt.DiagnosticSet, action string) *Failure {
	introduced := g.Introduced(before, after)
	if len(introduced) == 0 {
		return nil
	}
	f := newFailure(KindRegression, "applying %q introduced %d new diagnostic(s):\n%s",
		action, len(introduced), formatDiagnostics(introduced))
	f.Before = before
	f.After = after
	return f
}

// ValidityErrors counts the validity diagnostics whose severity is not tolerated.
func (g RegressionGuard) ValidityErrors(diags []tt.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if !g.Options.Tolerates(d.Severity) {
			n++
		}
	}
	return n
}

// CheckBaseline fails when the initial document is already invalid.
func (g RegressionGuard) CheckBaseline(diags []tt.Diagnostic) *Failure {
	if g.ValidityErrors(diags) == 0 {
		return nil
	}
	f := newFailure(KindRegression, "document has validity errors before any fix:\n%s", formatDiagnostics(diags))
	f.After = tt.NewDiagnosticSet(diags...)
	return f
}

// CheckValidity fails when a mutation raised the number of validity errors.
func (g RegressionGuard) CheckValidity(baseline int, after []tt.Diagnostic, action string) *Failure {
	count := g.ValidityErrors(after)
	if count <= baseline {
		return nil
	}
	f := newFailure(KindRegression, "applying %q raised validity errors from %d to %d:\n%s",
		action, baseline, count, formatDiagnostics(after))
	f.After = tt.NewDiagnosticSet(after...)
	return f
}

func formatDiagnostics(diags []tt.Diagnostic) string {
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  %s", d)
	}
	return b.String()
}
