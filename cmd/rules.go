package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnolang/fixverify/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in rules",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, r := range rules.All() {
			kind := "fix"
			if !r.Fixable {
				kind = "detect-only"
			}
			fmt.Fprintf(out, "%-28s %-12s %s\n", r.ID, kind, r.Description)
		}
	},
}
