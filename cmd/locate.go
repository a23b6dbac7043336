package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmg777/nightlights/internal/region"
)

var (
	locateVector    string
	locateVectorCRS string
	locateIDField   string
	locateX         float64
	locateY         float64
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the regions containing a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := region.ReadShapefile(locateVector, region.ShapefileOptions{
			IDField: locateIDField,
			CRS:     locateVectorCRS,
		})
		if err != nil {
			return err
		}
		idx := region.NewIndex(regions)
		hits := idx.Locate(locateX, locateY)
		if len(hits) == 0 {
			fmt.Printf("no region contains (%g, %g)\n", locateX, locateY)
			return nil
		}
		for _, r := range hits {
			fmt.Println(r.ID)
		}
		return nil
	},
}

func init() {
	locateCmd.Flags().StringVar(&locateVector, "vector", "", "path to region shapefile (.shp)")
	locateCmd.Flags().StringVar(&locateVectorCRS, "vector-crs", "EPSG:4326", "CRS of the shapefile")
	locateCmd.Flags().StringVar(&locateIDField, "id-field", "", "attribute field holding the region id")
	locateCmd.Flags().Float64Var(&locateX, "x", 0, "point x coordinate")
	locateCmd.Flags().Float64Var(&locateY, "y", 0, "point y coordinate")
	_ = locateCmd.MarkFlagRequired("vector")
	_ = locateCmd.MarkFlagRequired("id-field")
	_ = locateCmd.MarkFlagRequired("x")
	_ = locateCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(locateCmd)
}
