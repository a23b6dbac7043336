package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmg777/nightlights/internal/raster"
	"github.com/cmg777/nightlights/internal/region"
)

var (
	inspectRaster    string
	inspectRasterCRS string
	inspectVector    string
	inspectVectorCRS string
	inspectIDField   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print metadata for a raster or region file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectRaster == "" && inspectVector == "" {
			return fmt.Errorf("nothing to inspect: pass --raster and/or --vector")
		}
		if inspectRaster != "" {
			surface, err := raster.ReadASCIIGrid(inspectRaster, inspectRasterCRS)
			if err != nil {
				return err
			}
			tr := surface.Transform()
			e := surface.Extent()
			fmt.Printf("raster %s\n", inspectRaster)
			fmt.Printf("  size      %d x %d (%d cells)\n", surface.Width(), surface.Height(), surface.Cells())
			fmt.Printf("  cell      %g x %g\n", tr.CellWidth, tr.CellHeight)
			fmt.Printf("  extent    [%g %g] - [%g %g]\n", e.MinX, e.MinY, e.MaxX, e.MaxY)
			fmt.Printf("  crs       %s\n", surface.CRS())
			if nd, ok := surface.NoData(); ok {
				fmt.Printf("  nodata    %g\n", nd)
			} else {
				fmt.Printf("  nodata    (none)\n")
			}
		}
		if inspectVector != "" {
			regions, err := region.ReadShapefile(inspectVector, region.ShapefileOptions{
				IDField: inspectIDField,
				CRS:     inspectVectorCRS,
			})
			if err != nil {
				return err
			}
			e := regions.Extent()
			parts := region.Decompose(regions)
			fmt.Printf("vector %s\n", inspectVector)
			fmt.Printf("  regions   %d\n", regions.Len())
			fmt.Printf("  parts     %d\n", len(parts))
			fmt.Printf("  extent    [%g %g] - [%g %g]\n", e.MinX, e.MinY, e.MaxX, e.MaxY)
			fmt.Printf("  crs       %s\n", regions.CRS)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectRaster, "raster", "", "path to ESRI ASCII grid (.asc)")
	inspectCmd.Flags().StringVar(&inspectRasterCRS, "raster-crs", "EPSG:4326", "CRS of the raster")
	inspectCmd.Flags().StringVar(&inspectVector, "vector", "", "path to region shapefile (.shp)")
	inspectCmd.Flags().StringVar(&inspectVectorCRS, "vector-crs", "EPSG:4326", "CRS of the shapefile")
	inspectCmd.Flags().StringVar(&inspectIDField, "id-field", "", "attribute field holding the region id")
	rootCmd.AddCommand(inspectCmd)
}
