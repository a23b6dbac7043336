package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/aggregate"
	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
	"github.com/cmg777/nightlights/internal/report"
	"github.com/cmg777/nightlights/internal/stats"
	"github.com/cmg777/nightlights/internal/store"
)

var (
	aggRaster         string
	aggRasterCRS      string
	aggVector         string
	aggVectorCRS      string
	aggIDField        string
	aggLevel          string
	aggStrategy       string
	aggWorkers        int
	aggPassSize       int
	aggBestEffort     bool
	aggBBox           string
	aggIndicator      string
	aggIndicatorKey   string
	aggIndicatorValue string
	aggOutputCSV      string
	aggOutputXLSX     string
	aggSave           bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Sum raster values per region and write join-ready totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}

		ctx := cmd.Context()
		log := zap.L()

		surface, err := raster.ReadASCIIGrid(aggRaster, aggRasterCRS)
		if err != nil {
			return err
		}
		regions, err := region.ReadShapefile(aggVector, region.ShapefileOptions{
			IDField: aggIDField,
			CRS:     aggVectorCRS,
		})
		if err != nil {
			return err
		}
		log.Info("inputs loaded",
			zap.Int("raster_cells", surface.Cells()),
			zap.Int("regions", regions.Len()),
		)

		opts := aggregate.Options{
			Strategy:          aggregate.Strategy(pickStrategy()),
			Workers:           pickInt(aggWorkers, cfg.Aggregate.Workers),
			MaxRegionsPerPass: pickInt(aggPassSize, cfg.Aggregate.MaxRegionsPerPass),
			BestEffort:        aggBestEffort || cfg.Aggregate.BestEffort,
			Progress: func(done, total int) {
				if done%100 == 0 || done == total {
					log.Info("progress", zap.Int("done", done), zap.Int("total", total))
				}
			},
		}
		if aggBBox != "" {
			box, err := parseBBox(aggBBox)
			if err != nil {
				return err
			}
			opts.BoundingBox = &box
		}

		var run *store.Run
		var st store.Store
		if aggSave {
			st, err = store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			run, err = st.CreateRun(ctx, store.Run{
				RasterPath: aggRaster,
				VectorPath: aggVector,
				Level:      aggLevel,
				Strategy:   string(opts.Strategy),
			})
			if err != nil {
				return err
			}
			_ = st.UpdateRunStatus(ctx, run.ID, store.RunStatusRunning)
		}

		result, diags, err := aggregate.Run(ctx, surface, regions, opts)
		if err != nil {
			if run != nil {
				_ = st.CompleteRun(ctx, run.ID, store.RunStatusFailed, nil)
			}
			return err
		}

		rows := result.Rows()

		var indicator *stats.Indicator
		if aggIndicator != "" {
			indicator, err = loadIndicator(aggIndicator, aggIndicatorKey, aggIndicatorValue)
			if err != nil {
				return err
			}
		}
		merged := stats.Merge(rows, indicator)
		if indicator != nil {
			if r, corrErr := stats.Pearson(merged); corrErr == nil {
				fmt.Printf("correlation(total, %s) = %.4f\n", indicator.Name, r)
			} else {
				log.Warn("correlation not computed", zap.Error(corrErr))
			}
		}

		if aggOutputCSV != "" {
			if err := report.WriteCSV(aggOutputCSV, merged); err != nil {
				return err
			}
			log.Info("wrote CSV", zap.String("path", aggOutputCSV))
		}
		if aggOutputXLSX != "" {
			if err := report.WriteXLSX(aggOutputXLSX, aggLevel, merged); err != nil {
				return err
			}
			log.Info("wrote XLSX", zap.String("path", aggOutputXLSX))
		}

		if run != nil {
			if err := st.SaveTotals(ctx, run.ID, rows); err != nil {
				return err
			}
			if err := st.CompleteRun(ctx, run.ID, store.RunStatusComplete, diags); err != nil {
				return err
			}
			fmt.Printf("run %s saved (%d regions)\n", run.ID, len(rows))
		}

		printSummary(rows, diags)
		return nil
	},
}

func pickStrategy() string {
	if aggStrategy != "" {
		return aggStrategy
	}
	return cfg.Aggregate.Strategy
}

func pickInt(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

// parseBBox parses "minx,miny,maxx,maxy".
func parseBBox(s string) (raster.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return raster.Extent{}, eris.Errorf("bbox %q: want minx,miny,maxx,maxy", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return raster.Extent{}, eris.Wrapf(err, "bbox component %q", p)
		}
		vals[i] = v
	}
	e := raster.Extent{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if e.IsZero() {
		return raster.Extent{}, eris.Errorf("bbox %q has no area", s)
	}
	return e, nil
}

func loadIndicator(path, keyCol, valueCol string) (*stats.Indicator, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return stats.ReadXLSX(path, keyCol, valueCol)
	}
	return stats.ReadCSV(path, keyCol, valueCol)
}

func printSummary(rows []aggregate.Row, diags *aggregate.Diagnostics) {
	var sum float64
	for _, r := range rows {
		sum += r.Total
	}
	fmt.Printf("%d regions, grand total %.3f\n", len(rows), sum)
	if len(diags.EmptyCoverage) > 0 {
		fmt.Printf("%d regions zero-filled (no covered cells)\n", len(diags.EmptyCoverage))
	}
	if len(diags.InvalidGeometries) > 0 {
		fmt.Printf("%d regions had invalid geometry\n", len(diags.InvalidGeometries))
	}
	if len(diags.Failed) > 0 {
		fmt.Printf("%d regions failed (best-effort)\n", len(diags.Failed))
	}
}

func init() {
	aggregateCmd.Flags().StringVar(&aggRaster, "raster", "", "path to ESRI ASCII grid (.asc)")
	aggregateCmd.Flags().StringVar(&aggRasterCRS, "raster-crs", "EPSG:4326", "CRS of the raster")
	aggregateCmd.Flags().StringVar(&aggVector, "vector", "", "path to region shapefile (.shp)")
	aggregateCmd.Flags().StringVar(&aggVectorCRS, "vector-crs", "EPSG:4326", "CRS of the shapefile")
	aggregateCmd.Flags().StringVar(&aggIDField, "id-field", "", "attribute field holding the region id")
	aggregateCmd.Flags().StringVar(&aggLevel, "level", "", "label for this administrative level (e.g. nuts2)")
	aggregateCmd.Flags().StringVar(&aggStrategy, "strategy", "", "bulk or bounded (default from config)")
	aggregateCmd.Flags().IntVar(&aggWorkers, "workers", 0, "indexing workers (default from config)")
	aggregateCmd.Flags().IntVar(&aggPassSize, "pass-size", 0, "regions per bounded pass (default from config)")
	aggregateCmd.Flags().BoolVar(&aggBestEffort, "best-effort", false, "record per-region failures instead of aborting")
	aggregateCmd.Flags().StringVar(&aggBBox, "bbox", "", "clip box minx,miny,maxx,maxy in raster CRS")
	aggregateCmd.Flags().StringVar(&aggIndicator, "indicator", "", "CSV or XLSX file with an external indicator")
	aggregateCmd.Flags().StringVar(&aggIndicatorKey, "indicator-key", "region_id", "indicator column holding region ids")
	aggregateCmd.Flags().StringVar(&aggIndicatorValue, "indicator-value", "value", "indicator column holding values")
	aggregateCmd.Flags().StringVar(&aggOutputCSV, "out", "", "write totals to this CSV file")
	aggregateCmd.Flags().StringVar(&aggOutputXLSX, "out-xlsx", "", "write totals to this XLSX workbook")
	aggregateCmd.Flags().BoolVar(&aggSave, "save", false, "persist the run and totals to the configured store")
	_ = aggregateCmd.MarkFlagRequired("raster")
	_ = aggregateCmd.MarkFlagRequired("vector")
	_ = aggregateCmd.MarkFlagRequired("id-field")
	rootCmd.AddCommand(aggregateCmd)
}
