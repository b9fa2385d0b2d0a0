// internal/vector/dataset.go - In-memory vector datasets backed by GeoJSON
package vector

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/mapforge/internal/output"
)

// Dataset is a named collection of features in a single CRS
type Dataset struct {
	Name     string
	CRS      string
	Features []*geojson.Feature
}

// New creates an empty dataset
func New(name, crs string) *Dataset {
	return &Dataset{Name: name, CRS: crs}
}

// Len returns the number of features
func (d *Dataset) Len() int {
	return len(d.Features)
}

// Empty reports whether the dataset has no features
func (d *Dataset) Empty() bool {
	return len(d.Features) == 0
}

// Load reads a GeoJSON FeatureCollection, gzip-compressed when the path ends
// in .gz. The CRS comes from the collection's crs member when present,
// otherwise fallbackCRS is assumed.
func Load(path, name, fallbackCRS string) (*Dataset, error) {
	data, err := output.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}

	crs := fallbackCRS
	if named, ok := crsMember(fc.ExtraMembers); ok {
		crs = named
	}

	return &Dataset{Name: name, CRS: crs, Features: fc.Features}, nil
}

// Save writes the dataset as a GeoJSON FeatureCollection and returns the
// path written.
func (d *Dataset) Save(path string, config *output.WriterConfig) (string, error) {
	cfg := *config
	cfg.Format = output.FormatGeoJSON
	return output.WriteFile(&cfg, path, d.FeatureCollection())
}

// FeatureCollection returns the dataset as a collection carrying a crs member
func (d *Dataset) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = d.Features
	if d.CRS != "" {
		fc.ExtraMembers = geojson.Properties{"crs": CRSMember(d.CRS)}
	}
	return fc
}

// Append adds other's features; both datasets must share a CRS
func (d *Dataset) Append(other *Dataset) error {
	if other == nil {
		return nil
	}
	if d.CRS != "" && other.CRS != "" && !strings.EqualFold(d.CRS, other.CRS) {
		return fmt.Errorf("cannot append %s (%s) to %s (%s): CRS mismatch", other.Name, other.CRS, d.Name, d.CRS)
	}
	if d.CRS == "" {
		d.CRS = other.CRS
	}
	d.Features = append(d.Features, other.Features...)
	return nil
}

// Merge unions same-named datasets at vector level. A single input is
// returned unchanged.
func Merge(name string, sets ...*Dataset) (*Dataset, error) {
	var present []*Dataset
	for _, s := range sets {
		if s != nil {
			present = append(present, s)
		}
	}

	switch len(present) {
	case 0:
		return New(name, ""), nil
	case 1:
		return present[0], nil
	}

	merged := New(name, present[0].CRS)
	for _, s := range present {
		if err := merged.Append(s); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// IsLinear reports whether g has no area: line strings and points
func IsLinear(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.LineString, orb.MultiLineString, orb.Point, orb.MultiPoint:
		return true
	case orb.Collection:
		for _, member := range g {
			if !IsLinear(member) {
				return false
			}
		}
		return len(g) > 0
	default:
		return false
	}
}

// Linear reports whether every feature geometry of d is linear
func (d *Dataset) Linear() bool {
	found := false
	for _, f := range d.Features {
		if f.Geometry == nil {
			continue
		}
		if !IsLinear(f.Geometry) {
			return false
		}
		found = true
	}
	return found
}

// CRSMember builds the legacy GeoJSON crs member naming code
func CRSMember(code string) map[string]any {
	name := code
	if epsg, ok := strings.CutPrefix(strings.ToUpper(code), "EPSG:"); ok {
		name = "urn:ogc:def:crs:EPSG::" + epsg
	}
	return map[string]any{
		"type":       "name",
		"properties": map[string]any{"name": name},
	}
}

func crsMember(members geojson.Properties) (string, bool) {
	raw, ok := members["crs"].(map[string]any)
	if !ok {
		return "", false
	}
	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := props["name"].(string)
	if !ok {
		return "", false
	}

	upper := strings.ToUpper(name)
	switch {
	case strings.HasSuffix(upper, "CRS84"):
		return CRSWGS84, true
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		parts := strings.Split(upper, ":")
		return "EPSG:" + parts[len(parts)-1], true
	case strings.HasPrefix(upper, "EPSG:"):
		return upper, true
	}
	return "", false
}
