// cmd/slice.go - Tile slicing command
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/mapforge/internal/slice"
)

// sliceCmd represents the slice command
var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Cut a project's renders into coordinate-named tiles",
	Long: `Cut the thematic and photographic renders of an existing project into
square tiles of slice-factor pixels. The slices directory is emptied first.
Tiles are named {x}_{y}_veget_{size}.jpg and {x}_{y}_{size}.jpg where x and
y are kilometre coordinates of the tile's lower-left corner.

Examples:
  mapforge slice --name demo`,
	RunE: runSlice,
}

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().String("name", "", "project name")
	sliceCmd.MarkFlagRequired("name")
}

func runSlice(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	tiles, err := a.builder.Slice(context.Background(), name)
	if err != nil && len(tiles) == 0 {
		return err
	}

	fmt.Printf("Wrote %d tiles for %s\n", len(tiles), name)
	if err != nil {
		fmt.Printf("Failed files: %d\n", slice.Failures(err))
	}
	return err
}
