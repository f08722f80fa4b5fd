// Package verify checks that a rule's diagnostics and code fixes behave as
// expected on sample source text.
//
// Sample sources mark expected diagnostic spans with [| and |]:
//
//	v, err := verify.New(verify.RuleEmptyElse)
//	res := v.VerifyDiagnosticAndFix(ctx, "if x {\n}[| else {\n}|]\n", "if x {\n}\n")
package verify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/fixverify/internal/rules"
	"github.com/gnolang/fixverify/internal/textparser"
	tt "github.com/gnolang/fixverify/internal/types"
	"github.com/gnolang/fixverify/internal/verifier"
)

type (
	Analyzer            = tt.Analyzer
	Diagnostic          = tt.Diagnostic
	Document            = tt.Document
	FixAction           = tt.FixAction
	FixProvider         = tt.FixProvider
	OutputNormalizer    = tt.OutputNormalizer
	RuleID              = tt.RuleID
	Severity            = tt.Severity
	Span                = tt.Span
	ValidityChecker     = tt.ValidityChecker
	VerificationOptions = tt.VerificationOptions

	Failure = verifier.Failure
	Kind    = verifier.Kind
	Outcome = verifier.Outcome
	Result  = verifier.Result
)

// Built-in rules.
const (
	RuleEmptyElse                = rules.EmptyElse
	RuleUnnecessaryElse          = rules.UnnecessaryElse
	RuleSimplifySliceRange       = rules.SimplifySliceRange
	RuleRedundantTrailingComma   = rules.RedundantTrailingComma
	RuleHighCyclomaticComplexity = rules.HighCyclomaticComplexity
)

const (
	SeverityHidden  = tt.SeverityHidden
	SeverityInfo    = tt.SeverityInfo
	SeverityWarning = tt.SeverityWarning
	SeverityError   = tt.SeverityError
)

// Sentinels for errors.Is against Result.Err.
var (
	ErrCancelled            = verifier.ErrCancelled
	ErrConfiguration        = verifier.ErrConfiguration
	ErrNoDiagnosticProduced = verifier.ErrNoDiagnosticProduced
	ErrStuckLoop            = verifier.ErrStuckLoop
	ErrNoFixRegistered      = verifier.ErrNoFixRegistered
	ErrRegression           = verifier.ErrRegression
	ErrMismatch             = verifier.ErrMismatch
	ErrIterationLimit       = verifier.ErrIterationLimit
	ErrHost                 = verifier.ErrHost
)

// DefaultFilename names sample documents unless WithFilename is given.
const DefaultFilename = "sample.go"

// DefaultOptions returns the default verification options.
func DefaultOptions() VerificationOptions { return tt.DefaultOptions() }

// Verifier runs verifications for one target rule.
type Verifier struct {
	target   RuleID
	engine   *verifier.Engine
	options  VerificationOptions
	filename string

	settings   map[RuleID]rules.Settings
	logger     *zap.Logger
	validity   ValidityChecker
	normalizer OutputNormalizer
}

type Option func(*Verifier)

// WithOptions replaces the default verification options.
func WithOptions(o VerificationOptions) Option {
	return func(v *Verifier) { v.options = o }
}

// WithThreshold sets the numeric knob of a built-in rule.
func WithThreshold(id RuleID, threshold int) Option {
	return func(v *Verifier) {
		if v.settings == nil {
			v.settings = make(map[RuleID]rules.Settings)
		}
		v.settings[id] = rules.Settings{Threshold: threshold}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithFilename names the sample documents, which matters to analyzers that
// look at the file extension.
func WithFilename(name string) Option {
	return func(v *Verifier) { v.filename = name }
}

// WithValidityChecker applies to verifiers built with NewCustom only.
func WithValidityChecker(c ValidityChecker) Option {
	return func(v *Verifier) { v.validity = c }
}

// WithNormalizer applies to verifiers built with NewCustom only.
func WithNormalizer(n OutputNormalizer) Option {
	return func(v *Verifier) { v.normalizer = n }
}

func newVerifier(target RuleID, opts []Option) *Verifier {
	v := &Verifier{
		target:   target,
		options:  tt.DefaultOptions(),
		filename: DefaultFilename,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	return v
}

// New returns a verifier for a built-in rule. All built-in analyzers take
// part in regression checks; Go syntax is the validity check and gofmt the
// output normalizer.
func New(target RuleID, opts ...Option) (*Verifier, error) {
	v := newVerifier(target, opts)
	engine, err := rules.NewEngine(target, v.settings, v.logger)
	if err != nil {
		return nil, err
	}
	v.engine = engine
	return v, nil
}

// NewCustom returns a verifier over caller supplied collaborators.
func NewCustom(target RuleID, analyzers []Analyzer, provider FixProvider, opts ...Option) *Verifier {
	v := newVerifier(target, opts)
	engineOpts := []verifier.Option{verifier.WithLogger(v.logger)}
	if v.validity != nil {
		engineOpts = append(engineOpts, verifier.WithValidityChecker(v.validity))
	}
	if v.normalizer != nil {
		engineOpts = append(engineOpts, verifier.WithNormalizer(v.normalizer))
	}
	v.engine = verifier.NewEngine(analyzers, provider, engineOpts...)
	return v
}

func (v *Verifier) Target() RuleID                { return v.target }
func (v *Verifier) Options() VerificationOptions { return v.options }

// FixOption narrows which code action a fix verification applies.
type FixOption func(*verifier.FixRequest)

// Title asserts the title of every applied action.
func Title(title string) FixOption {
	return func(r *verifier.FixRequest) { r.Title = title }
}

// EquivalenceKey selects the action with the given key.
func EquivalenceKey(key string) FixOption {
	return func(r *verifier.FixRequest) { r.EquivalenceKey = key }
}

// VerifyDiagnostic checks that the target rule reports diagnostics exactly at
// the annotated spans. Optional messages pair with the spans in order of
// their start offsets.
func (v *Verifier) VerifyDiagnostic(ctx context.Context, annotated string, messages ...string) *Result {
	parsed, err := textparser.Parse(annotated)
	if err != nil {
		return invalidSample(err)
	}
	expected, err := expectedDiagnostics(parsed.Spans, messages)
	if err != nil {
		return invalidSample(err)
	}
	return v.engine.VerifyDiagnostics(ctx, verifier.DiagnosticRequest{
		Document: tt.NewDocument(v.filename, parsed.Text),
		Target:   v.target,
		Expected: expected,
		Options:  v.options,
	})
}

// VerifyFix repeatedly applies the target rule's fix to source until no
// target diagnostic remains and compares the result with expected.
func (v *Verifier) VerifyFix(ctx context.Context, source, expected string, opts ...FixOption) *Result {
	req := verifier.FixRequest{
		Document: tt.NewDocument(v.filename, source),
		Target:   v.target,
		Expected: expected,
		Options:  v.options,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return v.engine.VerifyFix(ctx, req)
}

// VerifyNoFix checks that no fixable diagnostic in source is offered a fix.
func (v *Verifier) VerifyNoFix(ctx context.Context, source string, opts ...FixOption) *Result {
	var sel verifier.FixRequest
	for _, opt := range opts {
		opt(&sel)
	}
	return v.engine.VerifyNoFix(ctx, verifier.NoFixRequest{
		Document:       tt.NewDocument(v.filename, source),
		Target:         v.target,
		EquivalenceKey: sel.EquivalenceKey,
		Options:        v.options,
	})
}

// VerifyDiagnosticAndFix runs VerifyDiagnostic on the annotated source and,
// when it passes, VerifyFix on the plain text.
func (v *Verifier) VerifyDiagnosticAndFix(ctx context.Context, annotated, expected string, opts ...FixOption) *Result {
	parsed, err := textparser.Parse(annotated)
	if err != nil {
		return invalidSample(err)
	}
	if res := v.VerifyDiagnostic(ctx, annotated); !res.Passed() {
		return res
	}
	return v.VerifyFix(ctx, parsed.Text, expected, opts...)
}

// VerifyDiagnosticAndNoFix runs VerifyDiagnostic on the annotated source and,
// when it passes, VerifyNoFix on the plain text.
func (v *Verifier) VerifyDiagnosticAndNoFix(ctx context.Context, annotated string, opts ...FixOption) *Result {
	parsed, err := textparser.Parse(annotated)
	if err != nil {
		return invalidSample(err)
	}
	if res := v.VerifyDiagnostic(ctx, annotated); !res.Passed() {
		return res
	}
	return v.VerifyNoFix(ctx, parsed.Text, opts...)
}

// ReplaceEmptySpan fills the [||] placeholder of a template with sourceData
// and expectedData, producing a source and its expected fix. The returned
// span covers sourceData in the source.
func ReplaceEmptySpan(template, sourceData, expectedData string) (Span, string, string, error) {
	return textparser.ReplaceEmptySpan(template, sourceData, expectedData)
}

func expectedDiagnostics(spans []tt.Span, messages []string) ([]verifier.ExpectedDiagnostic, error) {
	if len(messages) > 0 && len(messages) != len(spans) {
		return nil, fmt.Errorf("%d messages given for %d annotated spans", len(messages), len(spans))
	}
	out := make([]verifier.ExpectedDiagnostic, len(spans))
	for i, s := range spans {
		out[i].Span = s
		if len(messages) > 0 {
			out[i].Message = messages[i]
		}
	}
	return out, nil
}

func invalidSample(err error) *Result {
	return &Result{
		Outcome: verifier.OutcomeFail,
		Failure: &verifier.Failure{
			Kind:   verifier.KindConfiguration,
			Reason: fmt.Sprintf("invalid sample: %v", err),
			Cause:  err,
		},
	}
}
