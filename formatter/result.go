package formatter

import (
	"fmt"
	"strings"

	"github.com/gnolang/fixverify/internal/verifier"
)

const indent = "    "

// Result renders the outcome of one verification run. Failing runs include
// the failure reason, the iteration trail and, for regressions, the
// diagnostics before and after the offending fix.
func Result(name string, res *verifier.Result) string {
	var b strings.Builder

	switch res.Outcome {
	case verifier.OutcomePass:
		b.WriteString(passStyle.Sprint("PASS "))
		b.WriteString(name)
		fmt.Fprintf(&b, " (%s)\n", pluralize(res.AppliedCount(), "fix", "fixes"))
		return b.String()
	case verifier.OutcomeCancelled:
		b.WriteString(cancelStyle.Sprint("CANCELLED "))
		b.WriteString(name + "\n")
		return b.String()
	}

	b.WriteString(errorStyle.Sprint("FAIL "))
	b.WriteString(name)
	if res.Failure == nil {
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(": " + ruleStyle.Sprint(res.Failure.Kind.String()) + "\n")

	for _, line := range strings.Split(strings.TrimRight(res.Failure.Reason, "\n"), "\n") {
		b.WriteString(indent + colorDiffLine(line) + "\n")
	}
	if res.Failure.Cause != nil && !strings.Contains(res.Failure.Reason, res.Failure.Cause.Error()) {
		b.WriteString(indent + messageStyle.Sprint("cause: ") + res.Failure.Cause.Error() + "\n")
	}

	if res.Failure.Kind == verifier.KindRegression {
		writeRegression(&b, res)
	}
	if len(res.Trail) > 0 {
		b.WriteString(indent + lineStyle.Sprint("trail:") + "\n")
		b.WriteString(Trail(res.Trail))
	}
	return b.String()
}

func writeRegression(b *strings.Builder, res *verifier.Result) {
	before, after := res.Failure.Before.Items(), res.Failure.After.Items()
	if len(before) > 0 && !res.Final.IsZero() {
		b.WriteString(indent + lineStyle.Sprint("before:") + "\n")
		b.WriteString(Diagnostics(res.Final, before))
	}
	b.WriteString(indent + lineStyle.Sprint("after:") + "\n")
	if len(after) == 0 {
		b.WriteString(indent + indent + "(no diagnostics)\n")
	}
	for _, d := range after {
		b.WriteString(indent + indent + d.String() + "\n")
	}
}

// Trail renders one line per iteration.
func Trail(trail []verifier.TrailEntry) string {
	var b strings.Builder
	for _, e := range trail {
		fmt.Fprintf(&b, "%s%sv%d: %s", indent, indent, e.Version,
			pluralize(e.Diagnostics.Len(), "diagnostic", "diagnostics"))
		if e.Applied != nil {
			b.WriteString(" -> " + suggestionStyle.Sprintf("%q", e.Applied.Title))
			if e.Applied.EquivalenceKey != "" {
				fmt.Fprintf(&b, " [%s]", e.Applied.EquivalenceKey)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Summary renders the totals line of a suite run.
func Summary(passed, failed, cancelled int) string {
	parts := []string{passStyle.Sprintf("%d passed", passed)}
	if failed > 0 {
		parts = append(parts, errorStyle.Sprintf("%d failed", failed))
	} else {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if cancelled > 0 {
		parts = append(parts, cancelStyle.Sprintf("%d cancelled", cancelled))
	}
	return strings.Join(parts, ", ") + "\n"
}

func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return fileStyle.Sprint(line)
	case strings.HasPrefix(line, "+"):
		return suggestionStyle.Sprint(line)
	case strings.HasPrefix(line, "-"):
		return messageStyle.Sprint(line)
	case strings.HasPrefix(line, "@@"):
		return lineStyle.Sprint(line)
	default:
		return line
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
