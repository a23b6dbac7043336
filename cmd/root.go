package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nightlights",
	Short: "Zonal aggregation of night-time light rasters over region polygons",
	Long:  "Sums raster cell values per administrative region, handling CRS alignment, geometry repair, multi-part regions, and memory-bounded processing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
