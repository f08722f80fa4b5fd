package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gnolang/fixverify/formatter"
	"github.com/gnolang/fixverify/internal/config"
)

const defaultTimeout = 5 * time.Minute

// ErrFailed is returned by Execute when at least one case did not pass.
var ErrFailed = errors.New("verification failed")

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:              "fixverify [paths...]",
	Short:            "fixverify - verifies rule diagnostics and code fixes against expected output",
	TraverseChildren: true, // Prioritize subcommands
	Args:             cobra.ArbitraryArgs,
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		formatter.SetColor(isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// no subcommand
		if len(args) == 0 {
			return cmd.Help()
		}
		// fixverify [path1 path2 ...] behaves like the run subcommand
		return runCmd.RunE(runCmd, args)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for a verification run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
