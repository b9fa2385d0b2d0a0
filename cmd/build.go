// cmd/build.go - Project build command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/pipeline"
	"github.com/valpere/mapforge/pkg/geom"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a project raster for a bounding box",
	Long: `Build a project for a rectangular extent given in the deployment CRS.

The extent width and height must be multiples of resolution x slice factor
(5000 units with the defaults). Every region intersecting the extent is
staged in turn; same-named layers are merged before compositing.

Examples:
  # Build a project
  mapforge build --name demo --bbox "650000,6860000,655000,6865000"

  # Replace an existing project and slice it
  mapforge build --name demo --bbox "650000,6860000,655000,6865000" --overwrite --slice`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("name", "", "project name")
	buildCmd.Flags().String("bbox", "", "bounding box as xmin,ymin,xmax,ymax")
	buildCmd.Flags().String("photo", "", "photograph covering the extent (default: render the canvas)")
	buildCmd.Flags().Bool("overwrite", false, "replace an existing project")
	buildCmd.Flags().Bool("slice", false, "slice the renders into tiles")

	buildCmd.MarkFlagRequired("name")
	buildCmd.MarkFlagRequired("bbox")
}

func runBuild(cmd *cobra.Command, args []string) error {
	// Get command flags
	name, _ := cmd.Flags().GetString("name")
	bboxStr, _ := cmd.Flags().GetString("bbox")
	photo, _ := cmd.Flags().GetString("photo")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	doSlice, _ := cmd.Flags().GetBool("slice")

	box, err := geom.ParseBoundingBox(bboxStr)
	if err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "invalid bounding box", err)
	}

	progress := make(internal.ChanReporter, 32)
	done := make(chan struct{})
	verbose := viper.GetBool("logging.verbose")
	go func() {
		defer close(done)
		for checkpoint := range progress {
			if verbose {
				fmt.Fprintf(os.Stderr, "» %s\n", checkpoint)
			}
		}
	}()

	a, err := newApp(progress)
	if err != nil {
		close(progress)
		<-done
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := pipeline.Request{
		Name:      name,
		Box:       box,
		Overwrite: overwrite,
		Slice:     doSlice,
	}
	if photo != "" {
		req.Photo = pipeline.FileSource{Path: photo}
	}

	project, err := a.builder.Build(ctx, req)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	fmt.Printf("Project %s built in %s\n", project.Name, project.Dir)
	fmt.Printf("Regions: %v, Layers: %d, Duration: %s\n", project.Regions, project.Stats.Layers, project.Stats.Duration())
	for _, res := range project.Results {
		status := fmt.Sprintf("%d pixels", res.Masked)
		if res.Skipped {
			status = "skipped (empty)"
		}
		fmt.Printf("  %-12s %-28s %s\n", res.Kind, res.Layer, status)
	}
	if doSlice {
		fmt.Printf("Tiles: %d\n", project.Stats.Tiles)
	}
	return nil
}
