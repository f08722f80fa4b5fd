package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/fixverify/internal/config"
	"github.com/gnolang/fixverify/internal/suite"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Run cases once, then re-run case files whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide case file or directory paths")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		runFiles := func(ctx context.Context, paths []string) {
			files, err := suite.Load(paths)
			if err != nil {
				logger.Error("Error loading case files", zap.Error(err))
				return
			}
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			printResults(out, runner.Run(runCtx, files))
		}

		runFiles(ctx, args)

		w, err := suite.NewWatcher(args, suite.WithWatchLogger(logger))
		if err != nil {
			return err
		}
		defer w.Close()

		fmt.Fprintln(out, "watching for changes, press Ctrl+C to stop")
		return w.Run(ctx, runFiles)
	},
}
