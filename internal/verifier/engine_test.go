package verifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/fixverify/internal/edit"
	"github.com/gnolang/fixverify/internal/textparser"
	tt "github.com/gnolang/fixverify/internal/types"
)

const (
	emptyElseID     tt.RuleID = "empty-else"
	trailingCommaID tt.RuleID = "redundant-trailing-comma"
)

// substringAnalyzer reports id at every occurrence of needle.
func substringAnalyzer(id tt.RuleID, needle string, sev tt.Severity) tt.Analyzer {
	return tt.AnalyzerFunc(string(id), func(_ context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
		var out []tt.Diagnostic
		text := doc.Text()
		for off := 0; ; {
			i := strings.Index(text[off:], needle)
			if i < 0 {
				break
			}
			start := off + i
			out = append(out, tt.Diagnostic{
				ID:       id,
				Primary:  tt.NewSpan(start, start+len(needle)),
				Message:  "found " + needle,
				Severity: sev,
			})
			off = start + len(needle)
		}
		return out, nil
	})
}

// deletingProvider offers one action per diagnostic that removes its span.
func deletingProvider(id tt.RuleID, title, key string) tt.FixProvider {
	return tt.ProviderFunc{
		IDs: []tt.RuleID{id},
		Fn: func(_ context.Context, _ tt.Document, d tt.Diagnostic) ([]tt.FixAction, error) {
			return []tt.FixAction{
				edit.NewAction(title, key, []tt.RuleID{id}, func(tt.Document) ([]edit.TextEdit, error) {
					return []edit.TextEdit{edit.Delete(d.Primary)}, nil
				}),
			}, nil
		},
	}
}

// textProvider offers actions that replace the whole document.
func textProvider(id tt.RuleID, actions ...tt.FixAction) tt.FixProvider {
	return tt.ProviderFunc{
		IDs: []tt.RuleID{id},
		Fn: func(context.Context, tt.Document, tt.Diagnostic) ([]tt.FixAction, error) {
			return actions, nil
		},
	}
}

func replaceWith(title, key string, id tt.RuleID, fn func(string) string) tt.FixAction {
	return tt.FixAction{
		Title:          title,
		EquivalenceKey: key,
		Targets:        []tt.RuleID{id},
		Apply: func(_ context.Context, doc tt.Document) (string, error) {
			return fn(doc.Text()), nil
		},
	}
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Name() string { return "mock" }

func (m *mockAnalyzer) Analyze(ctx context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
	args := m.Called(ctx, doc)
	diags, _ := args.Get(0).([]tt.Diagnostic)
	return diags, args.Error(1)
}

func fixRequest(text string, target tt.RuleID, expected string) FixRequest {
	return FixRequest{
		Document: tt.NewDocument("case.go", text),
		Target:   target,
		Expected: expected,
		Options:  tt.DefaultOptions(),
	}
}

func TestVerifyFix_EmptyBranchRemoval(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", "RemoveEmptyElse"),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("if (x) { } else { }", emptyElseID, "if (x) { }"))

	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
	assert.Equal(t, 1, res.AppliedCount())
	assert.Equal(t, "if (x) { }", res.Final.Text())
	assert.Equal(t, 1, res.Final.Version())
	assert.Equal(t, "if (x) { }", res.Actual)

	require.Len(t, res.Trail, 2)
	require.NotNil(t, res.Trail[0].Applied)
	assert.Equal(t, "Remove empty else", res.Trail[0].Applied.Title)
	assert.Equal(t, "RemoveEmptyElse", res.Trail[0].Applied.EquivalenceKey)
	assert.Equal(t, 1, res.Trail[0].Diagnostics.Count(emptyElseID))
	assert.Nil(t, res.Trail[1].Applied)
	assert.Equal(t, 0, res.Trail[1].Diagnostics.Len())
}

func TestVerifyFix_FixesEveryOccurrence(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", ""),
	)

	res := engine.VerifyFix(context.Background(), fixRequest(
		"if (a) { } else { }\nif (b) { } else { }\n", emptyElseID, "if (a) { }\nif (b) { }\n"))

	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
	assert.Equal(t, 2, res.AppliedCount())
}

func TestVerifyFix_IdentityApplyIsStuck(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		textProvider(emptyElseID, replaceWith("Do nothing", "", emptyElseID, func(s string) string { return s })),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("if (x) { } else { }", emptyElseID, "if (x) { }"))

	require.Equal(t, OutcomeFail, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrStuckLoop)
	assert.Contains(t, res.Failure.Reason, "identical diagnostics before and after fix")
	assert.Len(t, res.Trail, 2)
	assert.Equal(t, 1, res.AppliedCount())
}

func TestVerifyFix_NoOpProvider(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		tt.DetectOnly(emptyElseID),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("if (x) { } else { }", emptyElseID, "if (x) { }"))

	assert.ErrorIs(t, res.Err(), ErrNoFixRegistered)
	require.Len(t, res.Trail, 1)
	assert.Nil(t, res.Trail[0].Applied)
	assert.Equal(t, 0, res.Final.Version())
}

func TestVerifyFix_NoDiagnosticProduced(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", ""),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("if (x) { }", emptyElseID, "if (x) { }"))

	assert.ErrorIs(t, res.Err(), ErrNoDiagnosticProduced)
	assert.Len(t, res.Trail, 1)
}

func TestVerifyFix_NonDeterministicAnalyzer(t *testing.T) {
	t.Parallel()

	calls := 0
	flaky := tt.AnalyzerFunc("flaky", func(_ context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
		calls++
		if strings.Contains(doc.Text(), "bad") || calls == 3 {
			return []tt.Diagnostic{{ID: emptyElseID, Primary: tt.NewSpan(0, 3), Severity: tt.SeverityWarning}}, nil
		}
		return nil, nil
	})
	engine := NewEngine(
		[]tt.Analyzer{flaky},
		textProvider(emptyElseID, replaceWith("Fix", "", emptyElseID, func(s string) string {
			return strings.ReplaceAll(s, "bad", "good")
		})),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("bad", emptyElseID, "good"))

	assert.ErrorIs(t, res.Err(), ErrMismatch)
	assert.Contains(t, res.Failure.Reason, "not deterministic")
	assert.Equal(t, 3, calls)
}

func TestVerifyFix_Regression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		severity tt.Severity
		pass     bool
	}{
		{name: "warning is a regression", severity: tt.SeverityWarning},
		{name: "error is a regression", severity: tt.SeverityError},
		{name: "info is tolerated", severity: tt.SeverityInfo, pass: true},
		{name: "hidden is tolerated", severity: tt.SeverityHidden, pass: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := NewEngine(
				[]tt.Analyzer{
					substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning),
					substringAnalyzer("unrelated", "oops", tc.severity),
				},
				textProvider(emptyElseID, replaceWith("Fix and break", "", emptyElseID, func(s string) string {
					return strings.ReplaceAll(s, "bad", "oops")
				})),
			)

			res := engine.VerifyFix(context.Background(), fixRequest("x := bad", emptyElseID, "x := oops"))

			if tc.pass {
				require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
				return
			}
			require.ErrorIs(t, res.Err(), ErrRegression)
			assert.Equal(t, "x := bad", res.Final.Text())
			assert.Equal(t, 0, res.Final.Version())
			assert.Equal(t, 1, res.Failure.Before.Len())
			assert.Equal(t, 1, res.Failure.After.Count("unrelated"))
			assert.Empty(t, res.Actual)
		})
	}
}

func TestVerifyFix_ShiftedDiagnosticsAreNotRegressions(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{
			substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning),
			substringAnalyzer("todo", "TODO", tt.SeverityWarning),
		},
		deletingProvider(emptyElseID, "Remove empty else", ""),
	)

	res := engine.VerifyFix(context.Background(), fixRequest(
		"if (x) { } else { } // TODO", emptyElseID, "if (x) { } // TODO"))

	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
}

func TestVerifyFix_SelectsByEquivalenceKey(t *testing.T) {
	t.Parallel()

	provider := textProvider(emptyElseID,
		replaceWith("Fix", "B", emptyElseID, func(string) string { return "fixed by B" }),
		replaceWith("Fix", "A", emptyElseID, func(string) string { return "fixed by A" }),
	)
	engine := NewEngine([]tt.Analyzer{substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning)}, provider)

	req := fixRequest("bad", emptyElseID, "fixed by A")
	req.EquivalenceKey = "A"
	res := engine.VerifyFix(context.Background(), req)
	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
	assert.Equal(t, "A", res.Trail[0].Applied.EquivalenceKey)

	req = fixRequest("bad", emptyElseID, "fixed by B")
	res = engine.VerifyFix(context.Background(), req)
	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())
	assert.Equal(t, "B", res.Trail[0].Applied.EquivalenceKey)

	req = fixRequest("bad", emptyElseID, "fixed by C")
	req.EquivalenceKey = "C"
	res = engine.VerifyFix(context.Background(), req)
	assert.ErrorIs(t, res.Err(), ErrNoFixRegistered)
}

func TestVerifyFix_TitleAssertion(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", ""),
	)

	req := fixRequest("if (x) { } else { }", emptyElseID, "if (x) { }")
	req.Title = "Remove empty else"
	assert.True(t, engine.VerifyFix(context.Background(), req).Passed())

	req.Title = "Remove else clause"
	res := engine.VerifyFix(context.Background(), req)
	require.ErrorIs(t, res.Err(), ErrMismatch)
	assert.Contains(t, res.Failure.Reason, `"Remove else clause"`)
	assert.Equal(t, 0, res.AppliedCount())
}

func TestVerifyFix_TextMismatch(t *testing.T) {
	t.Parallel()

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", ""),
	)

	res := engine.VerifyFix(context.Background(), fixRequest("if (x) { } else { }\n", emptyElseID, "if (y) { }\n"))

	require.ErrorIs(t, res.Err(), ErrMismatch)
	assert.Contains(t, res.Failure.Reason, "--- expected")
	assert.Contains(t, res.Failure.Reason, "+if (x) { }")
	assert.Equal(t, "if (x) { }\n", res.Actual)
	assert.Equal(t, "if (x) { }\n", res.Final.Text())
}

func TestVerifyFix_Normalization(t *testing.T) {
	t.Parallel()

	trim := tt.NormalizerFunc(func(_ context.Context, doc tt.Document) (string, error) {
		return strings.TrimSpace(doc.Text()), nil
	})
	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(emptyElseID, " else { }", tt.SeverityWarning)},
		deletingProvider(emptyElseID, "Remove empty else", ""),
		WithNormalizer(trim),
	)

	req := fixRequest("  if (x) { } else { }  ", emptyElseID, "if (x) { }")
	assert.True(t, engine.VerifyFix(context.Background(), req).Passed())

	req.Options.NormalizeBeforeFinalCompare = false
	res := engine.VerifyFix(context.Background(), req)
	assert.ErrorIs(t, res.Err(), ErrMismatch)
	assert.Equal(t, "  if (x) { }  ", res.Actual)
}

func TestVerifyFix_Cancelled(t *testing.T) {
	t.Parallel()

	analyzer := new(mockAnalyzer)
	engine := NewEngine([]tt.Analyzer{analyzer}, deletingProvider(emptyElseID, "Remove empty else", ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := engine.VerifyFix(ctx, fixRequest("if (x) { } else { }", emptyElseID, "if (x) { }"))

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrCancelled)
	assert.Nil(t, res.Failure)
	assert.Empty(t, res.Trail)
	analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestVerifyFix_CancelledBetweenIterations(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := textProvider(emptyElseID, tt.FixAction{
		Title:   "Fix and cancel",
		Targets: []tt.RuleID{emptyElseID},
		Apply: func(_ context.Context, doc tt.Document) (string, error) {
			cancel()
			return strings.Replace(doc.Text(), "bad", "", 1), nil
		},
	})
	engine := NewEngine([]tt.Analyzer{substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning)}, provider)

	res := engine.VerifyFix(ctx, fixRequest("bad bad", emptyElseID, "  "))

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Equal(t, 1, res.AppliedCount())
}

func TestVerifyFix_ConfigurationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider tt.FixProvider
	}{
		{name: "undeclared id", provider: deletingProvider("other", "Fix other", "")},
		{name: "nil provider", provider: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			analyzer := new(mockAnalyzer)
			engine := NewEngine([]tt.Analyzer{analyzer}, tc.provider)
			res := engine.VerifyFix(context.Background(), fixRequest("bad", emptyElseID, ""))

			assert.ErrorIs(t, res.Err(), ErrConfiguration)
			assert.Empty(t, res.Trail)
			analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestVerifyFix_IterationLimit(t *testing.T) {
	t.Parallel()

	// the whole text is flagged, and the fix toggles between two lengths,
	// so consecutive diagnostic sets are never equal
	whole := tt.AnalyzerFunc("whole", func(_ context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
		return []tt.Diagnostic{{ID: emptyElseID, Primary: tt.NewSpan(0, len(doc.Text())), Severity: tt.SeverityWarning}}, nil
	})
	engine := NewEngine([]tt.Analyzer{whole}, textProvider(emptyElseID,
		replaceWith("Toggle", "", emptyElseID, func(s string) string {
			if s == "a" {
				return "bb"
			}
			return "a"
		}),
	))

	req := fixRequest("a", emptyElseID, "")
	req.Options.MaxIterations = 5
	res := engine.VerifyFix(context.Background(), req)

	require.ErrorIs(t, res.Err(), ErrIterationLimit)
	assert.Equal(t, 5, res.AppliedCount())
	assert.Len(t, res.Trail, 6)
}

func TestVerifyFix_HostErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	analyzer := new(mockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, boom)
	engine := NewEngine([]tt.Analyzer{analyzer}, deletingProvider(emptyElseID, "Fix", ""))

	res := engine.VerifyFix(context.Background(), fixRequest("bad", emptyElseID, ""))
	require.ErrorIs(t, res.Err(), ErrHost)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Contains(t, res.Failure.Reason, "analyzer mock")
	analyzer.AssertNumberOfCalls(t, "Analyze", 1)

	failing := textProvider(emptyElseID, tt.FixAction{
		Title:   "Broken",
		Targets: []tt.RuleID{emptyElseID},
		Apply: func(context.Context, tt.Document) (string, error) {
			return "", boom
		},
	})
	engine = NewEngine([]tt.Analyzer{substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning)}, failing)

	res = engine.VerifyFix(context.Background(), fixRequest("bad", emptyElseID, ""))
	require.ErrorIs(t, res.Err(), ErrHost)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Equal(t, "bad", res.Final.Text())
}

type fixedChecker struct {
	invalid func(text string) bool
}

func (c fixedChecker) Check(_ context.Context, doc tt.Document) ([]tt.Diagnostic, error) {
	if c.invalid(doc.Text()) {
		return []tt.Diagnostic{{ID: "syntax-error", Primary: tt.NewSpan(0, 0), Severity: tt.SeverityError, Message: "invalid"}}, nil
	}
	return nil, nil
}

func TestVerifyFix_Validity(t *testing.T) {
	t.Parallel()

	checker := fixedChecker{invalid: func(s string) bool { return strings.Contains(s, "{{") }}

	t.Run("invalid baseline", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(
			[]tt.Analyzer{substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning)},
			deletingProvider(emptyElseID, "Fix", ""),
			WithValidityChecker(checker),
		)
		res := engine.VerifyFix(context.Background(), fixRequest("{{ bad", emptyElseID, "{{ "))

		require.ErrorIs(t, res.Err(), ErrRegression)
		assert.Contains(t, res.Failure.Reason, "before any fix")
		assert.Empty(t, res.Trail)
	})

	t.Run("mutation breaks validity", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(
			[]tt.Analyzer{substringAnalyzer(emptyElseID, "bad", tt.SeverityWarning)},
			textProvider(emptyElseID, replaceWith("Break", "", emptyElseID, func(s string) string {
				return strings.ReplaceAll(s, "bad", "{{")
			})),
			WithValidityChecker(checker),
		)
		res := engine.VerifyFix(context.Background(), fixRequest("x bad", emptyElseID, "x {{"))

		require.ErrorIs(t, res.Err(), ErrRegression)
		assert.Contains(t, res.Failure.Reason, "validity errors from 0 to 1")
		assert.Equal(t, "x bad", res.Final.Text())
	})
}

func TestTrailingComma_DetectedButNotFixable(t *testing.T) {
	t.Parallel()

	parsed, err := textparser.Parse("x := []int{1, 2[|,|]}")
	require.NoError(t, err)

	engine := NewEngine(
		[]tt.Analyzer{substringAnalyzer(trailingCommaID, ",}", tt.SeverityWarning)},
		tt.DetectOnly(trailingCommaID),
	)
	doc := tt.NewDocument("case.go", parsed.Text)

	// the analyzer flags ",}" so the expected span is widened by one
	expected := []ExpectedDiagnostic{{Span: tt.NewSpan(parsed.Spans[0].Start, parsed.Spans[0].End+1)}}
	res := engine.VerifyDiagnostics(context.Background(), DiagnosticRequest{
		Document: doc,
		Target:   trailingCommaID,
		Expected: expected,
		Options:  tt.DefaultOptions(),
	})
	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())

	res = engine.VerifyNoFix(context.Background(), NoFixRequest{Document: doc, Target: trailingCommaID})
	require.True(t, res.Passed(), "unexpected failure: %v", res.Err())

	res = engine.VerifyFix(context.Background(), FixRequest{
		Document: doc,
		Target:   trailingCommaID,
		Expected: "x := []int{1, 2}",
		Options:  tt.DefaultOptions(),
	})
	assert.ErrorIs(t, res.Err(), ErrNoFixRegistered)
}
