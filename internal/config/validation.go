// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"strings"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateProject(&config.Project); err != nil {
		return fmt.Errorf("project configuration invalid: %w", err)
	}

	if err := validateRegions(&config.Regions); err != nil {
		return fmt.Errorf("regions configuration invalid: %w", err)
	}

	if err := validateSources(&config.Sources); err != nil {
		return fmt.Errorf("sources configuration invalid: %w", err)
	}

	if err := validateLayers(&config.Layers); err != nil {
		return fmt.Errorf("layers configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	return nil
}

// validateProject validates canvas and storage parameters
func validateProject(config *ProjectConfig) error {
	if config.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive")
	}

	if config.SliceFactor <= 0 {
		return fmt.Errorf("slice_factor must be positive")
	}

	if !contains(SupportedCRS, config.CRS) {
		return fmt.Errorf("unsupported crs: %s, must be one of %v", config.CRS, SupportedCRS)
	}

	if config.ProjectsDir == "" {
		return fmt.Errorf("projects_dir is required")
	}

	if config.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}

	return nil
}

// validateRegions validates region graph parameters
func validateRegions(config *RegionsConfig) error {
	if config.Source == "" {
		return fmt.Errorf("source is required")
	}

	if config.GraphCache == "" {
		return fmt.Errorf("graph_cache is required")
	}

	if !contains(SupportedCRS, config.SourceCRS) {
		return fmt.Errorf("unsupported source_crs: %s, must be one of %v", config.SourceCRS, SupportedCRS)
	}

	if config.CodeProperty == "" || config.NameProperty == "" {
		return fmt.Errorf("code_property and name_property are required")
	}

	if config.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify_tolerance must be non-negative")
	}

	return nil
}

// validateSources validates source dataset parameters
func validateSources(config *SourcesConfig) error {
	if config.Dir == "" {
		return fmt.Errorf("dir is required")
	}

	if !contains(SupportedCRS, config.CRS) {
		return fmt.Errorf("unsupported crs: %s, must be one of %v", config.CRS, SupportedCRS)
	}

	return nil
}

// validateLayers validates thematic layer names
func validateLayers(config *LayersConfig) error {
	if config.Vegetation == "" {
		return fmt.Errorf("vegetation layer name is required")
	}

	if config.Parcels == "" {
		return fmt.Errorf("parcels layer name is required")
	}

	seen := make(map[string]bool, len(config.Topographic))
	for _, name := range config.Topographic {
		if name == "" {
			return fmt.Errorf("topographic layer names cannot be empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate topographic layer: %s", name)
		}
		seen[name] = true
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	if config.JPEGQuality < 1 || config.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	validOutputs := []string{"stdout", "stderr"}
	if !contains(validOutputs, config.Output) {
		return fmt.Errorf("invalid log output: %s, must be one of %v", config.Output, validOutputs)
	}

	return nil
}

// SupportedCRS lists the coordinate reference systems the reprojection layer understands
var SupportedCRS = []string{"EPSG:2154", "EPSG:4326"}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
