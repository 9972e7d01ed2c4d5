package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viktsys/tradepnl/config"
	"github.com/viktsys/tradepnl/logging"
)

var cfgFile string

var rootCMD = &cobra.Command{
	Use:   "tradepnl",
	Short: "Trade-log P&L analyzer",
	Long: `A CLI application for analyzing exported trade logs.
This tool reads CSV and XLSX trade logs, sums the net P&L % of exit trades
per day and per file, and serves stored analyses through a REST API.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCMD.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCMD.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the YAML config file")

	rootCMD.AddCommand(serverCMD)
	rootCMD.AddCommand(analyzeCMD)
	rootCMD.AddCommand(showCMD)
	rootCMD.AddCommand(headersCMD)
}

// setup loads the configuration and builds the logger shared by all commands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
