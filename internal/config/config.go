// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// DefaultTopographicLayers is the enumerated list of topographic sub-layers
// composited on top of the canvas, in painting order.
var DefaultTopographicLayers = []string{
	"AERODROME",
	"CONSTRUCTION_SURFACIQUE",
	"EQUIPEMENT_DE_TRANSPORT",
	"RESERVOIR",
	"TERRAIN_DE_SPORT",
	"TRONCON_DE_VOIE_FERREE",
	"ZONE_D_ESTRAN",
	"BATIMENT",
	"COURS_D_EAU",
	"PLAN_D_EAU",
	"SURFACE_HYDROGRAPHIQUE",
	"TRONCON_DE_ROUTE",
	"VOIE_NOMMEE",
}

// Config represents the complete application configuration
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Regions RegionsConfig `mapstructure:"regions"`
	Sources SourcesConfig `mapstructure:"sources"`
	Layers  LayersConfig  `mapstructure:"layers"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProjectConfig controls canvas geometry and project storage
type ProjectConfig struct {
	Resolution  float64 `mapstructure:"resolution"`
	SliceFactor int     `mapstructure:"slice_factor"`
	CRS         string  `mapstructure:"crs"`
	ProjectsDir string  `mapstructure:"projects_dir"`
	WorkDir     string  `mapstructure:"work_dir"`
}

// RegionsConfig locates the region source dataset and the graph cache
type RegionsConfig struct {
	Source            string  `mapstructure:"source"`
	GraphCache        string  `mapstructure:"graph_cache"`
	SourceCRS         string  `mapstructure:"source_crs"`
	CodeProperty      string  `mapstructure:"code_property"`
	NameProperty      string  `mapstructure:"name_property"`
	Prefilter         bool    `mapstructure:"prefilter"`
	SimplifyTolerance float64 `mapstructure:"simplify_tolerance"`
}

// SourcesConfig locates the per-region vector datasets
type SourcesConfig struct {
	Dir string `mapstructure:"dir"`
	CRS string `mapstructure:"crs"`
}

// LayersConfig names the thematic layers looked up in each region's sources
type LayersConfig struct {
	Vegetation  string   `mapstructure:"vegetation"`
	Parcels     string   `mapstructure:"parcels"`
	Topographic []string `mapstructure:"topographic"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	JPEGQuality int  `mapstructure:"jpeg_quality"`
	Compression bool `mapstructure:"compression"`
	Pretty      bool `mapstructure:"pretty"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
	Verbose bool   `mapstructure:"verbose"`
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v, applying defaults first
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Default returns the validated default configuration
func Default() *Config {
	config, err := LoadFrom(viper.New())
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return config
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Project defaults
	v.SetDefault("project.resolution", 10.0)
	v.SetDefault("project.slice_factor", 500)
	v.SetDefault("project.crs", "EPSG:2154")
	v.SetDefault("project.projects_dir", "projects")
	v.SetDefault("project.work_dir", "tmp")

	// Region graph defaults
	v.SetDefault("regions.source", filepath.Join("resources", "regions.geojson"))
	v.SetDefault("regions.graph_cache", filepath.Join("resources", "regions_graph.json"))
	v.SetDefault("regions.source_crs", "EPSG:2154")
	v.SetDefault("regions.code_property", "code")
	v.SetDefault("regions.name_property", "nom")
	v.SetDefault("regions.prefilter", true)
	v.SetDefault("regions.simplify_tolerance", 0.0)

	// Source dataset defaults
	v.SetDefault("sources.dir", filepath.Join("projects", "cache"))
	v.SetDefault("sources.crs", "EPSG:2154")

	// Layer defaults
	v.SetDefault("layers.vegetation", "FORMATION_VEGETALE")
	v.SetDefault("layers.parcels", "PARCELLES_GRAPHIQUES")
	v.SetDefault("layers.topographic", DefaultTopographicLayers)

	// Output defaults
	v.SetDefault("output.jpeg_quality", 95)
	v.SetDefault("output.compression", false)
	v.SetDefault("output.pretty", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.verbose", false)
}

// Holder guards a configuration shared between a build and its callers.
// A build holds the read lock for its whole duration.
type Holder struct {
	mu     sync.RWMutex
	config *Config
}

// NewHolder wraps config
func NewHolder(config *Config) *Holder {
	return &Holder{config: config}
}

// Read runs fn with the read lock held
func (h *Holder) Read(fn func(*Config) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.config)
}
