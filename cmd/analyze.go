package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viktsys/tradepnl/analysis"
	"github.com/viktsys/tradepnl/database"
	"github.com/viktsys/tradepnl/ingest"
	"github.com/viktsys/tradepnl/models"
	"github.com/viktsys/tradepnl/store"
)

var analyzeOpts struct {
	dateColumn string
	strategy   string
	mode       string
	from       string
	to         string
	dates      []string
	dir        string
	noSave     bool
	sort       string
	order      string
}

var analyzeCMD = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze trade-log files for the selected dates",
	Long: `Read CSV and XLSX trade logs, sum the net P&L % of exit trades on the
selected dates, print a summary per file and store the analysis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		key, order, err := analysis.ParseSort(analyzeOpts.sort, analyzeOpts.order)
		if err != nil {
			return err
		}
		selection, err := analysis.ParseSelection(analyzeOpts.mode, analyzeOpts.from, analyzeOpts.to, analyzeOpts.dates)
		if err != nil {
			return err
		}

		files := make([]ingest.File, 0, len(args))
		for _, path := range args {
			files = append(files, ingest.LocalFile(path))
		}
		if analyzeOpts.dir != "" {
			found, err := ingest.FilesInDirectory(analyzeOpts.dir)
			if err != nil {
				return err
			}
			files = append(files, found...)
		}

		var saver ingest.AnalysisSaver
		if !analyzeOpts.noSave {
			if _, err := analysis.Preconditions(analyzeOpts.dateColumn, selection); err != nil {
				return err
			}
			if len(files) == 0 {
				return ingest.ErrNoFiles
			}
			if err := database.InitDB(cfg.Database, logger); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close(database.DB)
			saver = store.NewRepository(database.DB)
		}

		processor := ingest.NewProcessor(saver, logger, cfg.Analysis.FileWorkers)
		record, err := processor.Run(cmd.Context(), ingest.Request{
			StrategyName: analyzeOpts.strategy,
			DateColumn:   analyzeOpts.dateColumn,
			Selection:    selection,
			Files:        files,
		})
		if record != nil {
			printAnalysis(cmd.OutOrStdout(), *record, key, order)
		}
		if err != nil {
			if record != nil {
				logger.Error("Analysis was not saved", zap.String("analysis_id", record.ID), zap.Error(err))
			}
			return err
		}
		return nil
	},
}

func init() {
	f := analyzeCMD.Flags()
	f.StringVar(&analyzeOpts.dateColumn, "date-column", "", "date column selected for the analysis (required)")
	f.StringVar(&analyzeOpts.strategy, "strategy", "", "strategy name recorded with the analysis")
	f.StringVar(&analyzeOpts.mode, "mode", "", "date selection mode: range or multiple")
	f.StringVar(&analyzeOpts.from, "from", "", "first day of the range (YYYY-MM-DD or DD-MM-YYYY)")
	f.StringVar(&analyzeOpts.to, "to", "", "last day of the range, defaults to --from")
	f.StringSliceVar(&analyzeOpts.dates, "dates", nil, "individual days to analyze")
	f.StringVar(&analyzeOpts.dir, "dir", "", "also analyze every CSV and XLSX file in this directory")
	f.BoolVar(&analyzeOpts.noSave, "no-save", false, "print the analysis without storing it")
	f.StringVar(&analyzeOpts.sort, "sort", string(analysis.SortByNetPnL), "sort files by netPnL or winRate")
	f.StringVar(&analyzeOpts.order, "order", string(analysis.Descending), "sort order: desc or asc")
}

// printAnalysis writes the ranked file summaries and the overall figures.
func printAnalysis(w io.Writer, record models.AnalysisRecord, key analysis.SortKey, order analysis.SortOrder) {
	fmt.Fprintf(w, "Analysis %s", record.ID)
	if record.StrategyName != "" {
		fmt.Fprintf(w, " (%s)", record.StrategyName)
	}
	fmt.Fprintf(w, "\nDate column: %s\nDates: %d selected\n\n", record.DateColumn, len(record.SelectedDates))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNET %\tPROFIT %\tLOSS %\tWIN RATE\tTRADES\tBEST DAY\tNOTE")
	for _, s := range analysis.SortSummaries(record.Summaries, key, order) {
		best := "-"
		if len(s.SortedByDate) > 0 {
			best = fmt.Sprintf("%s (%.2f)", s.SortedByDate[0].Date, s.SortedByDate[0].PnL)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f%%\t%d/%d\t%s\t%s\n",
			s.FileName, s.NetPnLPct, s.TotalProfitPct, s.TotalLossPct, s.WinRate,
			s.WinningTrades, s.TotalTrades, best, s.Error)
	}
	tw.Flush()

	overall := analysis.ComputeOverall(record.Summaries)
	fmt.Fprintf(w, "\nOverall: net %.2f%%, average win rate %.2f%% across %d files\n",
		overall.NetPnLPct, overall.AverageWinRate, overall.Files)
}
