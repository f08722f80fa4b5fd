package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/fixverify/internal/types"
)

func diag(id tt.RuleID, start int, sev tt.Severity, msg string) tt.Diagnostic {
	return tt.Diagnostic{ID: id, Primary: tt.NewSpan(start, start+1), Severity: sev, Message: msg}
}

func TestRegressionGuard_Introduced(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		compare  bool
		before   []tt.Diagnostic
		after    []tt.Diagnostic
		expected []tt.RuleID
	}{
		{
			name:   "removal only",
			before: []tt.Diagnostic{diag("a", 0, tt.SeverityWarning, "m")},
		},
		{
			name:   "moved diagnostic is not new",
			before: []tt.Diagnostic{diag("a", 0, tt.SeverityWarning, "m"), diag("b", 10, tt.SeverityWarning, "m")},
			after:  []tt.Diagnostic{diag("b", 4, tt.SeverityWarning, "m")},
		},
		{
			name:     "new id",
			before:   []tt.Diagnostic{diag("a", 0, tt.SeverityWarning, "m")},
			after:    []tt.Diagnostic{diag("c", 0, tt.SeverityError, "m")},
			expected: []tt.RuleID{"c"},
		},
		{
			name:     "extra copy of an existing id",
			before:   []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "m")},
			after:    []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "m"), diag("b", 5, tt.SeverityWarning, "m")},
			expected: []tt.RuleID{"b"},
		},
		{
			name:   "tolerated severity",
			after:  []tt.Diagnostic{diag("c", 0, tt.SeverityInfo, "m")},
			before: nil,
		},
		{
			name:     "changed message when compared",
			compare:  true,
			before:   []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "old")},
			after:    []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "new")},
			expected: []tt.RuleID{"b"},
		},
		{
			name:   "changed message when not compared",
			before: []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "old")},
			after:  []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "new")},
		},
		{
			name:     "raised severity",
			before:   []tt.Diagnostic{diag("b", 0, tt.SeverityWarning, "m")},
			after:    []tt.Diagnostic{diag("b", 0, tt.SeverityError, "m")},
			expected: []tt.RuleID{"b"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := tt.DefaultOptions()
			opts.CompareMessages = tc.compare
			g := RegressionGuard{Options: opts}

			introduced := g.Introduced(tt.NewDiagnosticSet(tc.before...), tt.NewDiagnosticSet(tc.after...))
			var ids []tt.RuleID
			for _, d := range introduced {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestRegressionGuard_CheckCarriesSets(t *testing.T) {
	t.Parallel()

	g := RegressionGuard{Options: tt.DefaultOptions()}
	before := tt.NewDiagnosticSet(diag("a", 0, tt.SeverityWarning, "m"))
	after := tt.NewDiagnosticSet(diag("c", 0, tt.SeverityWarning, "m"))

	f := g.Check(before, after, "Fix a")
	require.NotNil(t, f)
	assert.Equal(t, KindRegression, f.Kind)
	assert.True(t, before.Equal(f.Before))
	assert.True(t, after.Equal(f.After))
	assert.Contains(t, f.Error(), `RegressionError: applying "Fix a" introduced 1 new diagnostic(s)`)

	assert.Nil(t, g.Check(before, tt.DiagnosticSet{}, "Fix a"))
}

func TestRegressionGuard_Validity(t *testing.T) {
	t.Parallel()

	g := RegressionGuard{Options: tt.DefaultOptions()}
	errs := []tt.Diagnostic{diag("syntax-error", 0, tt.SeverityError, "x")}
	hidden := []tt.Diagnostic{diag("syntax-error", 0, tt.SeverityHidden, "x")}

	assert.Nil(t, g.CheckBaseline(nil))
	assert.Nil(t, g.CheckBaseline(hidden))
	assert.NotNil(t, g.CheckBaseline(errs))

	assert.Nil(t, g.CheckValidity(0, hidden, "Fix"))
	assert.Nil(t, g.CheckValidity(1, errs, "Fix"))
	f := g.CheckValidity(0, errs, "Fix")
	require.NotNil(t, f)
	assert.Equal(t, KindRegression, f.Kind)
	assert.Equal(t, 1, f.After.Len())
}
