package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/walletscan/internal/detection"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the patterns scans look for",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")

		patterns := appCtx.Config.Scan.Patterns
		if len(patterns) == 0 {
			patterns = detection.DefaultPatterns
		}
		set, err := detection.NewPatternSet(patterns)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSONOutput(out, map[string][]string{"patterns": set.Patterns()})
		}
		for _, p := range set.Patterns() {
			fmt.Fprintln(out, p)
		}
		return nil
	},
}

func init() {
	patternsCmd.Flags().Bool("json", false, "Print patterns as JSON")
}
