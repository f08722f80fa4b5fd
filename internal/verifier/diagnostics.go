package verifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	tt "github.com/gnolang/fixverify/internal/types"
)

// DiagnosticRequest describes a diagnostic-only verification run.
type DiagnosticRequest struct {
	Document tt.Document
	Target   tt.RuleID
	Expected []ExpectedDiagnostic
	Options  tt.VerificationOptions
}

// VerifyDiagnostics checks that the analyzers report diagnostics with the
// target id exactly at the expected spans, in any order. The document itself
// must be valid when a validity checker is configured.
func (e *Engine) VerifyDiagnostics(ctx context.Context, req DiagnosticRequest) *Result {
	res := &Result{Final: req.Document}
	if ctx.Err() != nil {
		return res.cancel()
	}

	guard := RegressionGuard{Options: req.Options}
	if e.validity != nil {
		diags, err := e.validity.Check(ctx, req.Document)
		if err != nil {
			return e.hostFailure(ctx, res, fmt.Errorf("validity check: %w", err))
		}
		if f := guard.CheckBaseline(diags); f != nil {
			return res.fail(f)
		}
	}

	set, err := e.analyze(ctx, req.Document)
	if err != nil {
		return e.hostFailure(ctx, res, err)
	}
	res.record(req.Document.Version(), set, nil)

	e.logger.Debug("diagnostics",
		zap.String("target", req.Target.String()),
		zap.Int("expected", len(req.Expected)),
		zap.Int("actual", set.Count(req.Target)))

	assertor := Assertor{Options: req.Options}
	if f := assertor.Diagnostics(req.Expected, set.WithID(req.Target)); f != nil {
		return res.fail(f)
	}

	res.Outcome = OutcomePass
	return res
}

// NoFixRequest describes a run asserting that no fix is offered.
type NoFixRequest struct {
	Document tt.Document

	// Target restricts the check to one diagnostic id. Empty checks every
	// reported diagnostic.
	Target tt.RuleID

	EquivalenceKey string
	Options        tt.VerificationOptions
}

// VerifyNoFix checks that the provider offers no action satisfying the
// selection criteria for any reported diagnostic it declares fixable.
// Diagnostics outside the provider's fixable ids are skipped.
func (e *Engine) VerifyNoFix(ctx context.Context, req NoFixRequest) *Result {
	res := &Result{Final: req.Document}
	if ctx.Err() != nil {
		return res.cancel()
	}

	set, err := e.analyze(ctx, req.Document)
	if err != nil {
		return e.hostFailure(ctx, res, err)
	}
	res.record(req.Document.Version(), set, nil)

	for _, d := range set.Items() {
		if req.Target != "" && d.ID != req.Target {
			continue
		}
		if !tt.IsFixable(e.provider, d.ID) {
			continue
		}
		if ctx.Err() != nil {
			return res.cancel()
		}

		candidates, err := e.provider.Actions(ctx, req.Document, d)
		if err != nil {
			return e.hostFailure(ctx, res, fmt.Errorf("fix provider: %w", err))
		}
		if action, ok := Select(candidates, d, req.EquivalenceKey); ok {
			return res.fail(newFailure(KindMismatch,
				"no code fix expected for %s, got %q", d, action.Title))
		}
	}

	res.Outcome = OutcomePass
	return res
}
