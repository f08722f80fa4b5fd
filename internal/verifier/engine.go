package verifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/fixverify/internal/edit"
	tt "github.com/gnolang/fixverify/internal/types"
)

// Engine drives detect, select, apply and re-detect to a fixed point for a
// single target diagnostic id. An Engine holds no per-run state and may be
// shared by concurrent runs as long as its collaborators are stateless.
type Engine struct {
	analyzers  []tt.Analyzer
	provider   tt.FixProvider
	validity   tt.ValidityChecker
	normalizer tt.OutputNormalizer
	mutator    edit.Mutator
	logger     *zap.Logger
}

type Option func(*Engine)

func WithValidityChecker(c tt.ValidityChecker) Option {
	return func(e *Engine) { e.validity = c }
}

func WithNormalizer(n tt.OutputNormalizer) Option {
	return func(e *Engine) { e.normalizer = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over analyzers, run in the given order, and
// provider. provider may be nil for diagnostic-only verification.
func NewEngine(analyzers []tt.Analyzer, provider tt.FixProvider, opts ...Option) *Engine {
	e := &Engine{
		analyzers: analyzers,
		provider:  provider,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FixRequest describes one fix verification run.
type FixRequest struct {
	Document tt.Document
	Target   tt.RuleID

	// Expected is the text the final document must equal after normalization.
	Expected string

	// Title, when set, must equal the title of every applied action.
	Title string

	// EquivalenceKey, when set, restricts selection to actions carrying it.
	EquivalenceKey string

	Options tt.VerificationOptions
}

// VerifyFix runs the convergence loop for req. Verification failures are
// reported through the returned Result, never as a Go error.
func (e *Engine) VerifyFix(ctx context.Context, req FixRequest) *Result {
	res := &Result{Final: req.Document}

	if !tt.IsFixable(e.provider, req.Target) {
		return res.fail(newFailure(KindConfiguration,
			"diagnostic %q is not declared fixable by the fix provider", req.Target))
	}
	if ctx.Err() != nil {
		return res.cancel()
	}

	guard := RegressionGuard{Options: req.Options}
	assertor := Assertor{Options: req.Options}

	baseline := 0
	if e.validity != nil {
		diags, err := e.validity.Check(ctx, req.Document)
		if err != nil {
			return e.hostFailure(ctx, res, fmt.Errorf("validity check: %w", err))
		}
		if f := guard.CheckBaseline(diags); f != nil {
			return res.fail(f)
		}
		baseline = guard.ValidityErrors(diags)
	}

	var (
		doc         = req.Document
		previous    tt.DiagnosticSet
		hasPrevious bool
		pending     *tt.DiagnosticSet
		applied     int
	)

	for {
		if ctx.Err() != nil {
			return res.cancel()
		}

		var current tt.DiagnosticSet
		if pending != nil {
			current, pending = *pending, nil
		} else {
			set, err := e.analyze(ctx, doc)
			if err != nil {
				return e.hostFailure(ctx, res, err)
			}
			current = set
		}

		e.logger.Debug("iteration",
			zap.String("target", req.Target.String()),
			zap.Int("version", doc.Version()),
			zap.Int("diagnostics", current.Len()),
			zap.Int("applied", applied))

		if hasPrevious && current.Equal(previous) {
			res.record(doc.Version(), current, nil)
			return res.fail(newFailure(KindStuckLoop,
				"identical diagnostics before and after fix:\n%s", current))
		}

		target, ok := current.First(req.Target)
		if !ok {
			res.record(doc.Version(), current, nil)
			if applied == 0 {
				return res.fail(newFailure(KindNoDiagnosticProduced,
					"no diagnostic %q reported on the initial document", req.Target))
			}
			break
		}

		if limit := req.Options.MaxIterations; limit > 0 && applied >= limit {
			res.record(doc.Version(), current, nil)
			return res.fail(newFailure(KindIterationLimit,
				"diagnostic %q still reported after %d applied fixes", req.Target, applied))
		}

		candidates, err := e.provider.Actions(ctx, doc, target)
		if err != nil {
			return e.hostFailure(ctx, res, fmt.Errorf("fix provider: %w", err))
		}
		action, ok := Select(candidates, target, req.EquivalenceKey)
		if !ok {
			res.record(doc.Version(), current, nil)
			return res.fail(newFailure(KindNoFixRegistered,
				"no code action registered for %s (equivalence key %q, %d candidate(s))",
				target, req.EquivalenceKey, len(candidates)))
		}
		if f := assertor.Title(req.Title, action.Title); f != nil {
			res.record(doc.Version(), current, nil)
			return res.fail(f)
		}

		e.logger.Debug("applying action",
			zap.String("title", action.Title),
			zap.String("equivalence_key", action.EquivalenceKey),
			zap.Stringer("span", target.Primary))

		next, err := e.mutator.Apply(ctx, doc, action)
		if err != nil {
			return e.hostFailure(ctx, res, err)
		}
		res.record(doc.Version(), current, &AppliedAction{
			Title:          action.Title,
			EquivalenceKey: action.EquivalenceKey,
		})

		// validity before re-analysis; analyzers need a parsable document
		if e.validity != nil {
			diags, err := e.validity.Check(ctx, next)
			if err != nil {
				return e.hostFailure(ctx, res, fmt.Errorf("validity check: %w", err))
			}
			if f := guard.CheckValidity(baseline, diags, action.Title); f != nil {
				return res.fail(f)
			}
		}

		after, err := e.analyze(ctx, next)
		if err != nil {
			return e.hostFailure(ctx, res, err)
		}
		if f := guard.Check(current, after, action.Title); f != nil {
			e.logger.Debug("regression", zap.String("title", action.Title), zap.String("reason", f.Reason))
			return res.fail(f)
		}

		res.Final = next
		previous, hasPrevious = current, true
		pending = &after
		doc = next
		applied++
	}

	if ctx.Err() != nil {
		return res.cancel()
	}
	again, err := e.analyze(ctx, doc)
	if err != nil {
		return e.hostFailure(ctx, res, err)
	}
	if n := again.Count(req.Target); n > 0 {
		return res.fail(newFailure(KindMismatch,
			"analyzers are not deterministic: %d diagnostic(s) %q reported again on the final document",
			n, req.Target))
	}

	if applied == 0 {
		return res.fail(newFailure(KindNoFixRegistered, "no code action was applied"))
	}

	actual := doc.Text()
	if req.Options.NormalizeBeforeFinalCompare && e.normalizer != nil {
		actual, err = e.normalizer.Normalize(ctx, doc)
		if err != nil {
			return e.hostFailure(ctx, res, fmt.Errorf("normalize: %w", err))
		}
	}
	res.Actual = actual

	if f := assertor.Text(req.Expected, actual); f != nil {
		return res.fail(f)
	}

	res.Outcome = OutcomePass
	return res
}

// analyze runs every analyzer, in declaration order, over doc.
func (e *Engine) analyze(ctx context.Context, doc tt.Document) (tt.DiagnosticSet, error) {
	perAnalyzer := make([][]tt.Diagnostic, 0, len(e.analyzers))
	for _, a := range e.analyzers {
		diags, err := a.Analyze(ctx, doc)
		if err != nil {
			return tt.DiagnosticSet{}, fmt.Errorf("analyzer %s: %w", a.Name(), err)
		}
		perAnalyzer = append(perAnalyzer, diags)
	}
	return tt.MergeDiagnostics(perAnalyzer...), nil
}

// hostFailure reports a collaborator error. Errors observed after the
// context was cancelled end the run as cancelled instead.
func (e *Engine) hostFailure(ctx context.Context, res *Result, err error) *Result {
	if ctx.Err() != nil {
		return res.cancel()
	}
	e.logger.Debug("collaborator failed", zap.Error(err))
	return res.fail(&Failure{Kind: KindHost, Reason: err.Error(), Cause: err})
}
