package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viktsys/tradepnl/analysis"
	"github.com/viktsys/tradepnl/ingest"
)

var headersCMD = &cobra.Command{
	Use:   "headers [file]",
	Short: "List the columns of a trade log and the detected date column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		headers, err := ingest.ReadHeaders(args[0], f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, h := range headers {
			fmt.Fprintf(out, "%2d  %s\n", i+1, h)
		}

		dateColumn := analysis.ResolveDateColumn(headers)
		if dateColumn == "" {
			dateColumn = "none (expected a header containing " + strings.Join(analysis.DateColumnKeywords, ", ") + ")"
		}
		fmt.Fprintf(out, "\nDate column: %s\n", dateColumn)
		return nil
	},
}
