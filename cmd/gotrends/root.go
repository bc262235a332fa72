package main

import (
	"fmt"
	"io"
	"os"

	gotrends "github.com/GrainArc/Gotrends"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath      string
	debug           bool
	ledgerPath      string
	continueOnError bool
	hv              []int

	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gotrends",
		Short:         "Per-pixel QA of change-detection results over an ARD grid cell",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if debug {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("can't initialize zap logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Turn on debugging output")
	root.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "SQLite file recording runs and chip outcomes")
	root.PersistentFlags().BoolVar(&continueOnError, "continue-on-error", false, "Skip chips that fail with an I/O error instead of aborting")

	root.AddCommand(newTrendsCmd(), newTimeSegCmd(), newChipsCmd())
	return root
}

// execute 运行命令并返回进程退出码
func execute(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// loadConfig 读取配置文件并用命令行参数覆盖
func loadConfig(cmd *cobra.Command) (gotrends.Config, error) {
	cfg := gotrends.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = gotrends.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}

	if cmd.Flags().Changed("ledger") {
		cfg.Ledger.Path = ledgerPath
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.Pipeline.ContinueOnError = continueOnError
	}
	if cmd.Flags().Changed("outdir") {
		cfg.Output.Dir = outDir
	}
	return cfg, nil
}

func gridFromFlags(cfg gotrends.Config) (*gotrends.TileGrid, error) {
	if len(hv) != 2 {
		return nil, fmt.Errorf("--hv takes exactly two values (H,V), got %d", len(hv))
	}
	return gotrends.NewTileGrid(hv[0], hv[1], cfg.Grid)
}

// openRecorder 配置了记录库时打开，返回关闭函数
func openRecorder(cfg gotrends.Config) (gotrends.ChipRecorder, func(), error) {
	if cfg.Ledger.Path == "" {
		return gotrends.NopRecorder{}, func() {}, nil
	}
	ledger, err := gotrends.OpenLedger(cfg.Ledger.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	return ledger, func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("failed to close ledger", zap.Error(err))
		}
	}, nil
}

func printSummary(s *gotrends.RunSummary) {
	fmt.Fprintf(os.Stdout, "run %s (%s) H%02dV%02d: %d/%d chips, %d with reference, %d written, %d failed, %d validated pixels\n",
		s.RunID, s.Mode, s.H, s.V, s.Processed, s.Total, s.WithReference, s.Written, s.Failed, s.ValidatedPixels)
}
