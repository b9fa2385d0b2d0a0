// cmd/regions.go - Region graph commands
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/pkg/geom"
)

// regionsCmd groups the region graph commands
var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Inspect and rebuild the region adjacency graph",
	Long: `Inspect and rebuild the region adjacency graph.

The graph is loaded from its cache artifact. When the artifact is absent it
is rebuilt from the region source dataset and written back; a corrupt
artifact is reported and never silently rebuilt.

Examples:
  mapforge regions build
  mapforge regions intersect --bbox "650000,6860000,655000,6865000"
  mapforge regions neighbors 75
  mapforge regions export 75 -o paris.geojson`,
}

var regionsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the graph cache from the region source dataset",
	Args:  cobra.NoArgs,
	RunE:  runRegionsBuild,
}

var regionsIntersectCmd = &cobra.Command{
	Use:   "intersect",
	Short: "List the regions intersecting a bounding box",
	Args:  cobra.NoArgs,
	RunE:  runRegionsIntersect,
}

var regionsNeighborsCmd = &cobra.Command{
	Use:   "neighbors CODE",
	Short: "List the neighbours of a region",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegionsNeighbors,
}

var regionsExportCmd = &cobra.Command{
	Use:   "export CODE",
	Short: "Write a region's extent as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegionsExport,
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.AddCommand(regionsBuildCmd, regionsIntersectCmd, regionsNeighborsCmd, regionsExportCmd)

	regionsIntersectCmd.Flags().String("bbox", "", "bounding box as xmin,ymin,xmax,ymax")
	regionsIntersectCmd.MarkFlagRequired("bbox")

	regionsExportCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
}

func runRegionsBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.store.Rebuild(context.Background())
	if err != nil {
		return err
	}

	edges := 0
	for _, r := range g.Regions() {
		edges += len(r.Neighbors)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Built graph of %d regions and %d adjacencies into %s\n",
		g.Len(), edges/2, a.cfg.Regions.GraphCache)
	return nil
}

func runRegionsIntersect(cmd *cobra.Command, args []string) error {
	bboxStr, _ := cmd.Flags().GetString("bbox")
	box, err := geom.ParseBoundingBox(bboxStr)
	if err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "invalid bounding box", err)
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.store.Load(context.Background())
	if err != nil {
		return err
	}

	regions, err := g.Intersecting(box)
	if err != nil {
		return err
	}
	for _, r := range regions {
		contained, err := r.Contains(box)
		if err != nil {
			return err
		}
		marker := ""
		if contained {
			marker = " (contains extent)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s%s\n", r.Code, r.Name, marker)
	}
	return nil
}

func runRegionsNeighbors(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.store.Load(context.Background())
	if err != nil {
		return err
	}

	neighbors, err := g.Neighbors(args[0])
	if err != nil {
		return err
	}
	for _, r := range neighbors {
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", r.Code, r.Name)
	}
	return nil
}

func runRegionsExport(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.store.Load(context.Background())
	if err != nil {
		return err
	}

	fc, err := g.Export(args[0], a.cfg.Project.CRS)
	if err != nil {
		return err
	}

	wc := &output.WriterConfig{
		Format:      output.FormatGeoJSON,
		Pretty:      a.cfg.Output.Pretty,
		Compression: a.cfg.Output.Compression,
	}
	if err := wc.Validate(); err != nil {
		return err
	}

	writer, err := output.NewWriter(wc, outputPath)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	return writer.Write(fc)
}
