package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/fixverify/formatter"
	"github.com/gnolang/fixverify/internal/config"
	"github.com/gnolang/fixverify/internal/report"
	"github.com/gnolang/fixverify/internal/rules"
	"github.com/gnolang/fixverify/internal/suite"
	tt "github.com/gnolang/fixverify/internal/types"
)

var (
	jsonOutput    bool
	msgpackOutput bool
	outPath       string
	ruleFilter    []string
	failFast      bool
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Run the verification cases found in the given files or directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide case file or directory paths")
		}
		if jsonOutput && msgpackOutput {
			return errors.New("--json and --msgpack are mutually exclusive")
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}

		files, err := suite.Load(args)
		if err != nil {
			return err
		}
		if isTerminal(os.Stderr) && !jsonOutput && !msgpackOutput {
			runner.Progress = os.Stderr
		}
		results := runner.Run(ctx, files)

		rep := report.New(cfg.Name, results)
		if err := writeReport(cmd.OutOrStdout(), rep, results); err != nil {
			return err
		}
		if rep.HasFailures() {
			return ErrFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	runCmd.Flags().BoolVar(&msgpackOutput, "msgpack", false, "Output results in msgpack format")
	runCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON or msgpack)")
	runCmd.Flags().StringSliceVar(&ruleFilter, "rule", nil, "Only run cases for these rules")
	runCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Cancel the remaining cases after the first failure")
}

func newRunner(cfg *config.Config) (*suite.Runner, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	settings, err := cfg.RuleSettings()
	if err != nil {
		return nil, err
	}

	var only []tt.RuleID
	for _, name := range ruleFilter {
		id, err := rules.ParseID(name)
		if err != nil {
			return nil, err
		}
		only = append(only, id)
	}

	return &suite.Runner{
		Options:     opts,
		Settings:    settings,
		Parallelism: cfg.Parallelism,
		FailFast:    failFast,
		Rules:       only,
		Logger:      logger,
	}, nil
}

func writeReport(stdout io.Writer, rep report.Report, results []suite.CaseResult) error {
	if !jsonOutput && !msgpackOutput {
		printResults(stdout, results)
		return nil
	}

	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Error("Error creating output file", zap.String("path", outPath), zap.Error(err))
			return err
		}
		defer f.Close()
		w = f
	}

	if jsonOutput {
		return report.EncodeJSON(w, rep)
	}
	return report.EncodeMsgpack(w, rep)
}

func printResults(w io.Writer, results []suite.CaseResult) {
	for _, r := range results {
		fmt.Fprint(w, formatter.Result(caseName(r), r.Result))
	}
	fmt.Fprint(w, formatter.Summary(suite.Count(results)))
}

func caseName(r suite.CaseResult) string {
	return fmt.Sprintf("%s: %s", r.File, r.Case)
}
