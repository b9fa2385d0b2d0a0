// internal/output/formatter.go - Output formatting implementation
package output

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// GeoJSONFormatter formats feature collections and features as GeoJSON
type GeoJSONFormatter struct {
	pretty bool
}

// NewGeoJSONFormatter creates a new GeoJSON formatter
func NewGeoJSONFormatter(pretty bool) *GeoJSONFormatter {
	return &GeoJSONFormatter{pretty: pretty}
}

// Format encodes a *geojson.FeatureCollection or *geojson.Feature
func (f *GeoJSONFormatter) Format(v any) ([]byte, error) {
	switch v.(type) {
	case *geojson.FeatureCollection, *geojson.Feature:
	default:
		return nil, fmt.Errorf("cannot format %T as GeoJSON", v)
	}

	if f.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ContentType returns the MIME type for GeoJSON
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// Extension returns the file extension for GeoJSON
func (f *GeoJSONFormatter) Extension() string {
	return ".geojson"
}

// JSONFormatter formats arbitrary values as JSON
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(pretty bool) *JSONFormatter {
	return &JSONFormatter{pretty: pretty}
}

// Format encodes v as JSON
func (f *JSONFormatter) Format(v any) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ContentType returns the MIME type for JSON
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Extension returns the file extension for JSON
func (f *JSONFormatter) Extension() string {
	return ".json"
}

// NewFormatter creates a formatter based on the specified configuration
func NewFormatter(format Format, pretty bool) (Formatter, error) {
	switch format {
	case FormatGeoJSON:
		return NewGeoJSONFormatter(pretty), nil
	case FormatJSON:
		return NewJSONFormatter(pretty), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
