package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/fixverify/internal/rules"
	"github.com/gnolang/fixverify/internal/textparser"
	tt "github.com/gnolang/fixverify/internal/types"
	"github.com/gnolang/fixverify/internal/verifier"
	"github.com/gnolang/fixverify/verify"
)

const defaultFilename = "case.go"

var errFailFast = errors.New("stopping after first failure")

// CaseResult is the outcome of one case.
type CaseResult struct {
	File     string
	Case     string
	Rule     tt.RuleID
	Mode     Mode
	Result   *verifier.Result
	Duration time.Duration
}

// Runner runs cases in parallel. Each case is an independent verification
// run; a run itself never shares state with another.
type Runner struct {
	Options  tt.VerificationOptions
	Settings map[tt.RuleID]rules.Settings

	// Parallelism bounds concurrent cases. Zero means runtime.NumCPU.
	Parallelism int

	// FailFast cancels the remaining cases after the first failure. They
	// report Cancelled.
	FailFast bool

	// Rules restricts the run to cases for these rules. Empty runs all.
	Rules []tt.RuleID

	Logger *zap.Logger

	// Progress receives a progress bar when set.
	Progress io.Writer
}

type job struct {
	file string
	c    Case
}

// Run verifies every selected case of files. Results keep file and case
// order regardless of completion order.
func (r *Runner) Run(ctx context.Context, files []*File) []CaseResult {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var jobs []job
	for _, f := range files {
		for _, c := range f.Cases {
			if len(r.Rules) > 0 && !slices.Contains(r.Rules, tt.RuleID(c.Rule)) {
				continue
			}
			jobs = append(jobs, job{file: f.Path, c: c})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	workers := r.Parallelism
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if r.Progress != nil {
		bar = newProgressBar(r.Progress, len(jobs))
	}

	results := make([]CaseResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(jobs)))

	for i, j := range jobs {
		g.Go(func() error {
			start := time.Now()
			res := r.RunCase(gctx, j.c, logger.With(zap.String("file", j.file), zap.String("case", j.c.Name)))
			results[i] = CaseResult{
				File:     j.file,
				Case:     j.c.Name,
				Rule:     tt.RuleID(j.c.Rule),
				Mode:     j.c.Mode,
				Result:   res,
				Duration: time.Since(start),
			}
			if bar != nil {
				_ = bar.Add(1)
			}

			if res.Outcome == verifier.OutcomeFail {
				logger.Error("case failed",
					zap.String("file", j.file),
					zap.String("case", j.c.Name),
					zap.Error(res.Err()))
				if r.FailFast {
					return errFailFast
				}
			}
			return nil
		})
	}
	// the only error a job returns is errFailFast
	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	return results
}

// RunCase verifies a single case.
func (r *Runner) RunCase(ctx context.Context, c Case, logger *zap.Logger) *verifier.Result {
	id, err := rules.ParseID(c.Rule)
	if err != nil {
		return configurationFailure(err)
	}
	opts, err := c.Options.Apply(r.Options)
	if err != nil {
		return configurationFailure(err)
	}

	vopts := []verify.Option{
		verify.WithOptions(opts),
		verify.WithLogger(logger),
		verify.WithFilename(defaultFilename),
	}
	if c.Filename != "" {
		vopts = append(vopts, verify.WithFilename(c.Filename))
	}
	for rid, s := range r.Settings {
		vopts = append(vopts, verify.WithThreshold(rid, s.Threshold))
	}
	if c.Options != nil && c.Options.Threshold != nil {
		vopts = append(vopts, verify.WithThreshold(id, *c.Options.Threshold))
	}

	v, err := verify.New(id, vopts...)
	if err != nil {
		return configurationFailure(err)
	}

	parsed, err := textparser.Parse(c.Source)
	if err != nil {
		return configurationFailure(err)
	}
	annotated := len(parsed.Spans) > 0

	var fixOpts []verify.FixOption
	if c.Title != "" {
		fixOpts = append(fixOpts, verify.Title(c.Title))
	}
	if c.EquivalenceKey != "" {
		fixOpts = append(fixOpts, verify.EquivalenceKey(c.EquivalenceKey))
	}

	switch c.Mode {
	case ModeFix:
		if annotated {
			return v.VerifyDiagnosticAndFix(ctx, c.Source, c.Expected, fixOpts...)
		}
		return v.VerifyFix(ctx, parsed.Text, c.Expected, fixOpts...)
	case ModeNoFix:
		if annotated {
			return v.VerifyDiagnosticAndNoFix(ctx, c.Source, fixOpts...)
		}
		return v.VerifyNoFix(ctx, parsed.Text, fixOpts...)
	case ModeDiagnostic:
		return v.VerifyDiagnostic(ctx, c.Source, c.Messages...)
	default:
		return configurationFailure(fmt.Errorf("unknown mode %q", c.Mode))
	}
}

// Count tallies outcomes.
func Count(results []CaseResult) (passed, failed, cancelled int) {
	for _, r := range results {
		switch r.Result.Outcome {
		case verifier.OutcomePass:
			passed++
		case verifier.OutcomeCancelled:
			cancelled++
		default:
			failed++
		}
	}
	return passed, failed, cancelled
}

func configurationFailure(err error) *verifier.Result {
	return &verifier.Result{
		Outcome: verifier.OutcomeFail,
		Failure: &verifier.Failure{
			Kind:   verifier.KindConfiguration,
			Reason: err.Error(),
			Cause:  err,
		},
	}
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
