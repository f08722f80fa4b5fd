// Package textparser extracts expected spans from annotated sample text.
//
// A span is written as [|text|]. Spans may nest, and [||] denotes an empty
// span at that position.
package textparser

import (
	"errors"
	"fmt"
	"strings"

	tt "github.com/gnolang/fixverify/internal/types"
)

const (
	openMarker  = "[|"
	closeMarker = "|]"
	placeholder = "[||]"
)

var ErrNoPlaceholder = errors.New("textparser: source contains no [||] placeholder")

// Result is the plain text and the spans found in it, ordered by start offset.
type Result struct {
	Text  string
	Spans []tt.Span
}

// Parse strips span markers from annotated and returns the plain text along
// with the marked spans.
func Parse(annotated string) (Result, error) {
	var (
		b     strings.Builder
		spans []tt.Span
		open  []int // indexes into spans
	)

	for i := 0; i < len(annotated); {
		switch {
		case strings.HasPrefix(annotated[i:], openMarker):
			spans = append(spans, tt.Span{Start: b.Len(), End: -1})
			open = append(open, len(spans)-1)
			i += len(openMarker)
		case strings.HasPrefix(annotated[i:], closeMarker) && len(open) > 0:
			idx := open[len(open)-1]
			open = open[:len(open)-1]
			spans[idx].End = b.Len()
			i += len(closeMarker)
		case strings.HasPrefix(annotated[i:], closeMarker):
			return Result{}, fmt.Errorf("textparser: unmatched %q at offset %d", closeMarker, i)
		default:
			b.WriteByte(annotated[i])
			i++
		}
	}
	if len(open) > 0 {
		return Result{}, fmt.Errorf("textparser: %d unclosed %q marker(s)", len(open), openMarker)
	}

	text := b.String()
	doc := tt.NewDocument("", text)
	for i := range spans {
		spans[i].Hint = doc.Position(spans[i].Start)
	}
	return Result{Text: text, Spans: spans}, nil
}

// ReplaceEmptySpan substitutes the first [||] placeholder in source with
// sourceData and expectedData respectively. The returned span covers
// sourceData inside the returned source.
func ReplaceEmptySpan(source, sourceData, expectedData string) (tt.Span, string, string, error) {
	idx := strings.Index(source, placeholder)
	if idx < 0 {
		return tt.Span{}, "", "", ErrNoPlaceholder
	}
	prefix := source[:idx]
	suffix := source[idx+len(placeholder):]

	span := tt.NewSpan(idx, idx+len(sourceData))
	span.Hint = tt.NewDocument("", prefix).Position(idx)
	return span, prefix + sourceData + suffix, prefix + expectedData + suffix, nil
}
