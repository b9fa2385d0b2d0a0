// cmd/root.go - Root command implementation
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/config"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/pipeline"
	"github.com/valpere/mapforge/internal/region"
	"github.com/valpere/mapforge/internal/toolkit"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapforge",
	Short: "Build thematic map rasters and coordinate-named tiles",
	Long: `Mapforge builds a georeferenced thematic raster for a rectangular extent.

It resolves the administrative regions intersecting the extent from a cached
region adjacency graph, stages each region's vegetation, agricultural parcel
and topographic layers, composites them onto one canvas in a fixed priority
order and exports the result as a GeoTIFF with world file, a thematic JPEG
render and a photographic JPEG render. Both renders can be cut into square
tiles named after their kilometre coordinates.

Examples:
  # Build a 5 km square project at 10 m resolution
  mapforge build --name demo --bbox "650000,6860000,655000,6865000"

  # Build with an orthophoto and slice the result
  mapforge build --name demo --bbox "650000,6860000,655000,6865000" --photo ortho.jpeg --slice

  # Re-slice an existing project
  mapforge slice --name demo

  # Rebuild the region graph cache and query it
  mapforge regions build
  mapforge regions intersect --bbox "650000,6860000,655000,6865000"
  mapforge regions neighbors 75

  # Use configuration file
  mapforge build --config mapforge.yaml --name demo --bbox "650000,6860000,655000,6865000"`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var appErr *internal.Error
		if errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", appErr.Code, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mapforge.yaml or $HOME/.mapforge.yaml)")
	rootCmd.PersistentFlags().String("projects-dir", "", "directory holding built projects")
	rootCmd.PersistentFlags().String("sources-dir", "", "directory holding per-region source datasets")

	// Output flags
	rootCmd.PersistentFlags().Bool("pretty", false, "pretty print GeoJSON output")
	rootCmd.PersistentFlags().Bool("compression", false, "gzip staged and exported GeoJSON")

	// Logging flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("project.projects_dir", rootCmd.PersistentFlags().Lookup("projects-dir"))
	viper.BindPFlag("sources.dir", rootCmd.PersistentFlags().Lookup("sources-dir"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("output.compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring unreadable .env file:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("mapforge")
	}

	// Environment variables: MAPFORGE_PROJECT_RESOLUTION overrides project.resolution
	viper.SetEnvPrefix("MAPFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		cobra.CheckErr(fmt.Errorf("failed to read config file %s: %w", cfgFile, err))
	}
}

// app bundles the collaborators shared by subcommands
type app struct {
	cfg     *config.Config
	holder  *config.Holder
	logger  *zap.Logger
	kit     toolkit.Toolkit
	store   *region.Store
	builder *pipeline.Builder
}

// newApp loads configuration and wires the build collaborators
func newApp(reporter internal.Reporter) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to load configuration", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to create logger", err)
	}

	kit := toolkit.NewNative(logger)
	store := region.NewStore(cfg.Regions, cfg.Project.CRS, kit, logger)
	holder := config.NewHolder(cfg)

	return &app{
		cfg:     cfg,
		holder:  holder,
		logger:  logger,
		kit:     kit,
		store:   store,
		builder: pipeline.NewBuilder(holder, kit, store, reporter, logger),
	}, nil
}

// close flushes buffered log entries
func (a *app) close() {
	_ = a.logger.Sync()
}
