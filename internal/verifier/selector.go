package verifier

import tt "github.com/gnolang/fixverify/internal/types"

// Select returns the first candidate, in provider order, that targets d's id
// and, when equivalenceKey is non-empty, carries exactly that key. Titles
// play no part in selection.
func Select(candidates []tt.FixAction, d tt.Diagnostic, equivalenceKey string) (tt.FixAction, bool) {
	for _, c := range candidates {
		if !c.Addresses(d.ID) {
			continue
		}
		if equivalenceKey != "" && c.EquivalenceKey != equivalenceKey {
			continue
		}
		return c, true
	}
	return tt.FixAction{}, false
}
