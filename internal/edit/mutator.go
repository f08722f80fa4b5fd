package edit

import (
	"context"
	"fmt"

	tt "github.com/gnolang/fixverify/internal/types"
)

// Mutator applies fix actions to documents. The input document is never
// modified; the result is its successor in the same lineage.
type Mutator struct{}

func (Mutator) Apply(ctx context.Context, doc tt.Document, action tt.FixAction) (tt.Document, error) {
	if action.Apply == nil {
		return tt.Document{}, fmt.Errorf("action %q has no apply function", action.Title)
	}
	text, err := action.Apply(ctx, doc)
	if err != nil {
		return tt.Document{}, fmt.Errorf("apply %q: %w", action.Title, err)
	}
	return doc.Next(text), nil
}
