package types

import (
	"sort"
	"strings"
)

// DiagnosticSet is the ordered set of diagnostics captured at one iteration.
// Items are ordered by primary span start; diagnostics starting at the same
// offset keep the order in which their analyzers were declared.
type DiagnosticSet struct {
	items []Diagnostic
}

// MergeDiagnostics merges per-analyzer results, given in analyzer declaration
// order, into a single position-ordered set.
func MergeDiagnostics(perAnalyzer ...[]Diagnostic) DiagnosticSet {
	total := 0
	for _, ds := range perAnalyzer {
		total += len(ds)
	}
	items := make([]Diagnostic, 0, total)
	for _, ds := range perAnalyzer {
		items = append(items, ds...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Primary.Start < items[j].Primary.Start
	})
	return DiagnosticSet{items: items}
}

func NewDiagnosticSet(items ...Diagnostic) DiagnosticSet {
	return MergeDiagnostics(items)
}

func (s DiagnosticSet) Len() int { return len(s.items) }

// Items returns a copy of the diagnostics in order.
func (s DiagnosticSet) Items() []Diagnostic {
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)
	return out
}

// Equal reports structural equality: same length and pairwise equal values.
func (s DiagnosticSet) Equal(other DiagnosticSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Equal(other.items[i]) {
			return false
		}
	}
	return true
}

// First returns the first diagnostic carrying the given id.
func (s DiagnosticSet) First(id RuleID) (Diagnostic, bool) {
	for _, d := range s.items {
		if d.ID == id {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// WithID returns the diagnostics carrying the given id, in order.
func (s DiagnosticSet) WithID(id RuleID) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.items {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out
}

func (s DiagnosticSet) Count(id RuleID) int {
	n := 0
	for _, d := range s.items {
		if d.ID == id {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics for which keep returns true.
func (s DiagnosticSet) Filter(keep func(Diagnostic) bool) DiagnosticSet {
	var out []Diagnostic
	for _, d := range s.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	return DiagnosticSet{items: out}
}

func (s DiagnosticSet) String() string {
	if len(s.items) == 0 {
		return "(no diagnostics)"
	}
	var b strings.Builder
	for i, d := range s.items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return b.String()
}
