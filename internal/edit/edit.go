package edit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tt "github.com/gnolang/fixverify/internal/types"
)

var (
	ErrOutOfRange  = errors.New("edit span out of range")
	ErrConflict    = errors.New("edits overlap")
	ErrTextChanged = errors.New("existing text does not match expected content")
)

// TextEdit replaces the text covered by Span with NewText. When OldText is
// set, the covered text must equal it for the edit to apply.
type TextEdit struct {
	Span    tt.Span
	NewText string
	OldText string
}

func Delete(span tt.Span) TextEdit {
	return TextEdit{Span: span}
}

func Insert(offset int, text string) TextEdit {
	return TextEdit{Span: tt.NewSpan(offset, offset), NewText: text}
}

func Replace(span tt.Span, text string) TextEdit {
	return TextEdit{Span: span, NewText: text}
}

// Apply applies edits to text. All spans refer to the original text; edits
// must not overlap.
func Apply(text string, edits []TextEdit) (string, error) {
	sorted := make([]TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End < sorted[j].Span.End
		}
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	for i := 1; i < len(sorted); i++ {
		if spansConflict(sorted[i-1].Span, sorted[i].Span) {
			return "", fmt.Errorf("%w: %s and %s", ErrConflict, sorted[i-1].Span, sorted[i].Span)
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, e := range sorted {
		start, end := e.Span.Start, e.Span.End
		if start < 0 || end < start || end > len(text) {
			return "", fmt.Errorf("%w: %s in text of length %d", ErrOutOfRange, e.Span, len(text))
		}
		if e.OldText != "" && text[start:end] != e.OldText {
			return "", fmt.Errorf("%w at %s", ErrTextChanged, e.Span)
		}
		b.WriteString(text[cursor:start])
		b.WriteString(e.NewText)
		cursor = end
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

// spansConflict reports whether two spans overlap. Spans are half-open;
// two empty spans never conflict, and an empty span conflicts with a
// non-empty one only when it lies strictly inside it.
func spansConflict(a, b tt.Span) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return false
	}
	if a.IsEmpty() {
		return b.Start < a.Start && a.Start < b.End
	}
	if b.IsEmpty() {
		return a.Start < b.Start && b.Start < a.End
	}
	return a.Start < b.End && b.Start < a.End
}

// NewAction builds a FixAction whose Apply computes edits against the
// document it is given and applies them.
func NewAction(title, equivalenceKey string, targets []tt.RuleID, edits func(doc tt.Document) ([]TextEdit, error)) tt.FixAction {
	return tt.FixAction{
		Title:          title,
		EquivalenceKey: equivalenceKey,
		Targets:        targets,
		Apply: func(ctx context.Context, doc tt.Document) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			es, err := edits(doc)
			if err != nil {
				return "", err
			}
			return Apply(doc.Text(), es)
		},
	}
}
