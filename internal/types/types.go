package types

import (
	"fmt"
	"strings"
)

// Severity represents how serious a reported diagnostic is.
type Severity int

const (
	SeverityHidden Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityHidden:
		return "HIDDEN"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hidden":
		return SeverityHidden, nil
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityHidden, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RuleID identifies a diagnostic rule. Known identifiers are declared by the
// rules registry; unknown ones are rejected when a verification is configured.
type RuleID string

func (id RuleID) String() string { return string(id) }

// LinePosition is a 1-based line and column pair. The zero value means unknown.
type LinePosition struct {
	Line   int
	Column int
}

func (p LinePosition) IsValid() bool { return p.Line > 0 }

func (p LinePosition) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open byte range [Start, End) into a document's text.
// Hint carries the line and column of Start as seen when the span was
// reported, which stays meaningful for diagnostics against stale snapshots.
type Span struct {
	Start int
	End   int
	Hint  LinePosition
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) IsEmpty() bool { return s.Start == s.End }

// Equal compares offsets only; hints are informational.
func (s Span) Equal(other Span) bool {
	return s.Start == other.Start && s.End == other.End
}

func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End)
}

// Diagnostic is a single issue reported by an analyzer. Diagnostics are values:
// two diagnostics with the same id, primary span and message are the same
// diagnostic, regardless of where they came from.
type Diagnostic struct {
	ID         RuleID
	Primary    Span
	Additional []Span
	Message    string
	Severity   Severity
}

// Key returns the value identity of the diagnostic.
func (d Diagnostic) Key() DiagnosticKey {
	return DiagnosticKey{ID: d.ID, Start: d.Primary.Start, End: d.Primary.End, Message: d.Message}
}

func (d Diagnostic) Equal(other Diagnostic) bool {
	return d.Key() == other.Key()
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Severity, d.ID, d.Primary, d.Message)
}

// DiagnosticKey is the comparable identity of a Diagnostic.
type DiagnosticKey struct {
	ID      RuleID
	Start   int
	End     int
	Message string
}
