package main

import (
	"os"

	gotrends "github.com/GrainArc/Gotrends"
	"github.com/spf13/cobra"
)

var (
	trendsPath string
	outDir     string
	jsonDir    string
)

func newTrendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Check change records against the reference change raster",
		Long: `For every chip of the grid cell, pixels marked as changed in the reference
raster are checked against the detected change segments. Chips with at least one
validated pixel are written to <outdir>/chips/mask_<chip>.tif.`,
		RunE: runTrends,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVarP(&trendsPath, "trends", "t", "", "Reference land-cover-change raster")
	_ = cmd.MarkFlagRequired("trends")
	return cmd
}

func newTimeSegCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeseg",
		Short: "Check time segments of every pixel without reference data",
		RunE:  runTimeSegments,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&hv, "hv", nil, "Horizontal and vertical ARD grid identifiers (H,V)")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", "", "Directory for output masks")
	cmd.Flags().StringVarP(&jsonDir, "jsondir", "j", "", "Directory holding the JSON change results for the grid cell")
	_ = cmd.MarkFlagRequired("hv")
	_ = cmd.MarkFlagRequired("jsondir")
}

func newPipeline(cmd *cobra.Command) (*gotrends.ChipPipeline, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	grid, err := gridFromFlags(cfg)
	if err != nil {
		return nil, nil, err
	}
	expectations, err := cfg.ExpectationSource()
	if err != nil {
		return nil, nil, err
	}
	validity, err := cfg.ValidityCriterion()
	if err != nil {
		return nil, nil, err
	}
	recorder, closeRecorder, err := openRecorder(cfg)
	if err != nil {
		return nil, nil, err
	}

	writer := gotrends.NewGDALMaskWriter()
	writer.Overwrite = cfg.Output.Overwrite

	progress := gotrends.NewTerminalProgress(os.Stderr)
	pipeline, err := gotrends.NewChipPipeline(grid,
		gotrends.NewGDALRegionReader(),
		gotrends.NewJSONResultStore(jsonDir),
		writer,
		gotrends.PipelineOptions{
			ReferencePath:      trendsPath,
			OutputDir:          cfg.Output.Dir,
			ProjectionWKT:      cfg.Output.ProjectionWKT,
			KeepReferenceChips: cfg.Output.KeepReferenceChips,
			ContinueOnError:    cfg.Pipeline.ContinueOnError,
			Expectations:       expectations,
			Validity:           validity,
			Progress:           progress,
			Recorder:           recorder,
			Logger:             logger,
		})
	if err != nil {
		closeRecorder()
		return nil, nil, err
	}

	return pipeline, func() {
		progress.Finish()
		closeRecorder()
	}, nil
}

func runTrends(cmd *cobra.Command, args []string) error {
	pipeline, done, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer done()

	summary, err := pipeline.RunTrends(cmd.Context())
	if summary != nil {
		printSummary(summary)
	}
	return err
}

func runTimeSegments(cmd *cobra.Command, args []string) error {
	pipeline, done, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	defer done()

	summary, err := pipeline.RunTimeSegments(cmd.Context())
	if summary != nil {
		printSummary(summary)
	}
	return err
}
