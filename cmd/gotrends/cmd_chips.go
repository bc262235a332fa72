package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chipsOut string

func newChipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chips",
		Short: "Write the chip footprints of a grid cell as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			grid, err := gridFromFlags(cfg)
			if err != nil {
				return err
			}
			if err := grid.WriteGeoJSON(chipsOut); err != nil {
				return err
			}

			logger.Info("chip footprints written",
				zap.String("cell", grid.Name()),
				zap.Int("chips", grid.Len()),
				zap.String("output", chipsOut))
			fmt.Fprintln(cmd.OutOrStdout(), chipsOut)
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&hv, "hv", nil, "Horizontal and vertical ARD grid identifiers (H,V)")
	cmd.Flags().StringVar(&chipsOut, "out", "chips.geojson", "Output GeoJSON file")
	_ = cmd.MarkFlagRequired("hv")
	return cmd
}
