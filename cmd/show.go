package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viktsys/tradepnl/analysis"
	"github.com/viktsys/tradepnl/database"
	"github.com/viktsys/tradepnl/store"
)

var showOpts struct {
	sort  string
	order string
}

var showCMD = &cobra.Command{
	Use:   "show [analysis-id]",
	Short: "Print a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		key, order, err := analysis.ParseSort(showOpts.sort, showOpts.order)
		if err != nil {
			return err
		}

		if err := database.InitDB(cfg.Database, logger); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close(database.DB)

		record, err := store.NewRepository(database.DB).GetAnalysis(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printAnalysis(cmd.OutOrStdout(), *record, key, order)
		return nil
	},
}

func init() {
	showCMD.Flags().StringVar(&showOpts.sort, "sort", string(analysis.SortByNetPnL), "sort files by netPnL or winRate")
	showCMD.Flags().StringVar(&showOpts.order, "order", string(analysis.Descending), "sort order: desc or asc")
}
