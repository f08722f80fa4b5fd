// Package rules holds the built-in Go rules and the static registry that
// maps each rule id to its analyzer and fix provider.
package rules

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"

	"github.com/gnolang/fixverify/internal/nolint"
	tt "github.com/gnolang/fixverify/internal/types"
	"github.com/gnolang/fixverify/internal/verifier"
)

const (
	EmptyElse                tt.RuleID = "empty-else"
	UnnecessaryElse          tt.RuleID = "unnecessary-else"
	SimplifySliceRange       tt.RuleID = "simplify-slice-range"
	RedundantTrailingComma   tt.RuleID = "redundant-trailing-comma"
	HighCyclomaticComplexity tt.RuleID = "high-cyclomatic-complexity"

	// SyntaxError is reserved for the validity checker and has no rule.
	SyntaxError tt.RuleID = "syntax-error"
)

// knownIDs is the closed set of identifiers the registry may hold.
var knownIDs = []tt.RuleID{
	EmptyElse,
	UnnecessaryElse,
	SimplifySliceRange,
	RedundantTrailingComma,
	HighCyclomaticComplexity,
	SyntaxError,
}

// ruleSeverity is the severity of every built-in rule's diagnostics.
const ruleSeverity = tt.SeverityWarning

var ErrUnknownRule = errors.New("unknown rule")

// Settings are per-rule knobs read from configuration.
type Settings struct {
	Threshold int `koanf:"threshold" yaml:"threshold,omitempty" toml:"threshold,omitempty"`
}

// Rule binds an id to its analyzer and fix provider constructors.
type Rule struct {
	ID          tt.RuleID
	Description string

	// Fixable is false for detect-only rules, whose provider declares the id
	// but never offers an action.
	Fixable bool

	NewAnalyzer    func(Settings) tt.Analyzer
	NewFixProvider func() tt.FixProvider
}

var registry = map[tt.RuleID]Rule{
	EmptyElse: {
		ID:             EmptyElse,
		Description:    "else block without statements",
		Fixable:        true,
		NewAnalyzer:    analysisRule(emptyElseAnalyzer),
		NewFixProvider: newEmptyElseProvider,
	},
	UnnecessaryElse: {
		ID:             UnnecessaryElse,
		Description:    "else block after an if body that ends in return",
		Fixable:        true,
		NewAnalyzer:    analysisRule(unnecessaryElseAnalyzer),
		NewFixProvider: newUnnecessaryElseProvider,
	},
	SimplifySliceRange: {
		ID:             SimplifySliceRange,
		Description:    "s[a:len(s)] can be written as s[a:]",
		Fixable:        true,
		NewAnalyzer:    analysisRule(simplifySliceAnalyzer),
		NewFixProvider: newSimplifySliceProvider,
	},
	RedundantTrailingComma: {
		ID:             RedundantTrailingComma,
		Description:    "trailing comma before a closing brace on the same line",
		NewAnalyzer:    func(Settings) tt.Analyzer { return trailingCommaAnalyzer{severity: ruleSeverity} },
		NewFixProvider: func() tt.FixProvider { return tt.DetectOnly(RedundantTrailingComma) },
	},
	HighCyclomaticComplexity: {
		ID:          HighCyclomaticComplexity,
		Description: "function whose cyclomatic complexity exceeds the threshold",
		NewAnalyzer: func(s Settings) tt.Analyzer {
			return newAnalysisAnalyzer(newComplexityAnalyzer(s.threshold()))
		},
		NewFixProvider: func() tt.FixProvider { return tt.DetectOnly(HighCyclomaticComplexity) },
	},
}

func init() {
	if err := validate(); err != nil {
		panic(err)
	}
}

// validate checks the registry against the closed id set.
func validate() error {
	for id, r := range registry {
		if r.ID != id {
			return fmt.Errorf("rule %q registered under %q", r.ID, id)
		}
		if !slices.Contains(knownIDs, id) || id == SyntaxError {
			return fmt.Errorf("rule %q is not a known rule id", id)
		}
		if r.NewAnalyzer == nil || r.NewFixProvider == nil {
			return fmt.Errorf("rule %q is missing a constructor", id)
		}
		if name := r.NewAnalyzer(Settings{}).Name(); name != string(id) {
			return fmt.Errorf("rule %q builds analyzer %q", id, name)
		}
		if !tt.IsFixable(r.NewFixProvider(), id) {
			return fmt.Errorf("rule %q provider does not declare its own id", id)
		}
	}
	return nil
}

// ParseID converts a name into a registered rule id.
func ParseID(name string) (tt.RuleID, error) {
	id := tt.RuleID(name)
	if _, ok := registry[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, name)
	}
	return id, nil
}

func Lookup(id tt.RuleID) (Rule, error) {
	r, ok := registry[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, id)
	}
	return r, nil
}

// All returns every registered rule ordered by id.
func All() []Rule {
	out := make([]Rule, 0, len(registry))
	for _, r := range registry {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Analyzers builds every registered analyzer, with first leading and the
// rest ordered by id.
func Analyzers(first tt.RuleID, settings map[tt.RuleID]Settings) []tt.Analyzer {
	all := All()
	analyzers := make([]tt.Analyzer, 0, len(all))
	if r, ok := registry[first]; ok {
		analyzers = append(analyzers, r.NewAnalyzer(settings[first]))
	}
	for _, r := range all {
		if r.ID == first {
			continue
		}
		analyzers = append(analyzers, r.NewAnalyzer(settings[r.ID]))
	}
	return analyzers
}

// NewEngine builds a verification engine for rule id: every built-in
// analyzer, the rule's fix provider, Go syntax validity and gofmt output
// normalization.
func NewEngine(id tt.RuleID, settings map[tt.RuleID]Settings, logger *zap.Logger) (*verifier.Engine, error) {
	r, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return verifier.NewEngine(
		Analyzers(id, settings),
		r.NewFixProvider(),
		verifier.WithValidityChecker(GoSyntax{}),
		verifier.WithNormalizer(GoFormat{}),
		verifier.WithLogger(logger.With(zap.String("rule", string(id)))),
	), nil
}

func (s Settings) threshold() int {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return DefaultComplexityThreshold
}

// newAnalysisAnalyzer wraps a syntax rule; nolint directives apply to it.
func newAnalysisAnalyzer(a *analysis.Analyzer) tt.Analyzer {
	return tt.AnalysisAnalyzer{Analyzer: a, Severity: ruleSeverity, Filter: nolint.Filter}
}

func analysisRule(a *analysis.Analyzer) func(Settings) tt.Analyzer {
	return func(Settings) tt.Analyzer { return newAnalysisAnalyzer(a) }
}
