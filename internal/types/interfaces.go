package types

import (
	"context"
	"slices"
)

// Analyzer reports diagnostics for a document. Implementations must be
// deterministic and free of side effects.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, doc Document) ([]Diagnostic, error)
}

// FixProvider offers candidate actions for diagnostics it declares fixable.
type FixProvider interface {
	// FixableIDs returns the fixed set of diagnostic ids the provider addresses.
	FixableIDs() []RuleID

	// Actions returns candidate actions for d, in the provider's preferred order.
	Actions(ctx context.Context, doc Document, d Diagnostic) ([]FixAction, error)
}

// ValidityChecker reports fundamental document errors, such as syntax errors,
// that are independent of any analyzer.
type ValidityChecker interface {
	Check(ctx context.Context, doc Document) ([]Diagnostic, error)
}

// OutputNormalizer canonicalizes final text before it is compared.
type OutputNormalizer interface {
	Normalize(ctx context.Context, doc Document) (string, error)
}

// ApplyFunc computes the text of the successor document. It must not have
// effects beyond its return values.
type ApplyFunc func(ctx context.Context, doc Document) (string, error)

// FixAction is a named candidate transformation.
type FixAction struct {
	Title          string
	EquivalenceKey string
	Targets        []RuleID
	Apply          ApplyFunc
}

// Addresses reports whether the action declares id among its targets.
func (a FixAction) Addresses(id RuleID) bool {
	return slices.Contains(a.Targets, id)
}

// IsFixable reports whether p declares id fixable.
func IsFixable(p FixProvider, id RuleID) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.FixableIDs(), id)
}

type analyzerFunc struct {
	name string
	fn   func(ctx context.Context, doc Document) ([]Diagnostic, error)
}

// AnalyzerFunc wraps fn as a named Analyzer.
func AnalyzerFunc(name string, fn func(ctx context.Context, doc Document) ([]Diagnostic, error)) Analyzer {
	return analyzerFunc{name: name, fn: fn}
}

func (a analyzerFunc) Name() string { return a.name }

func (a analyzerFunc) Analyze(ctx context.Context, doc Document) ([]Diagnostic, error) {
	return a.fn(ctx, doc)
}

// ProviderFunc is a FixProvider backed by a function.
type ProviderFunc struct {
	IDs []RuleID
	Fn  func(ctx context.Context, doc Document, d Diagnostic) ([]FixAction, error)
}

func (p ProviderFunc) FixableIDs() []RuleID { return p.IDs }

func (p ProviderFunc) Actions(ctx context.Context, doc Document, d Diagnostic) ([]FixAction, error) {
	if p.Fn == nil {
		return nil, nil
	}
	return p.Fn(ctx, doc, d)
}

// DetectOnly returns a provider that declares ids fixable but never offers an action.
func DetectOnly(ids ...RuleID) FixProvider {
	return ProviderFunc{IDs: ids}
}

// NormalizerFunc adapts a function to OutputNormalizer.
type NormalizerFunc func(ctx context.Context, doc Document) (string, error)

func (f NormalizerFunc) Normalize(ctx context.Context, doc Document) (string, error) {
	return f(ctx, doc)
}

// IdentityNormalizer leaves the text untouched.
var IdentityNormalizer OutputNormalizer = NormalizerFunc(func(_ context.Context, doc Document) (string, error) {
	return doc.Text(), nil
})
