// internal/vector/proj.go - Coordinate reference system transforms
package vector

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// Supported CRS identifiers
const (
	CRSLambert93 = "EPSG:2154"
	CRSWGS84     = "EPSG:4326"
)

// definitions maps the supported CRS identifiers to their proj4 strings
var definitions = map[string]string{
	CRSLambert93: "+proj=lcc +lat_1=49 +lat_2=44 +lat_0=46.5 +lon_0=3 +x_0=700000 +y_0=6600000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	CRSWGS84:     "+proj=longlat +datum=WGS84 +no_defs",
}

func spatialReference(code string) (*proj.SR, error) {
	def, ok := definitions[code]
	if !ok {
		return nil, fmt.Errorf("unsupported CRS %s", code)
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("while parsing %s: %w", code, err)
	}
	return sr, nil
}

func transformer(from, to string) (proj.Transformer, error) {
	src, err := spatialReference(from)
	if err != nil {
		return nil, fmt.Errorf("unsupported transform %s -> %s: %w", from, to, err)
	}
	dst, err := spatialReference(to)
	if err != nil {
		return nil, fmt.Errorf("unsupported transform %s -> %s: %w", from, to, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("while creating transform %s -> %s: %w", from, to, err)
	}
	return t, nil
}

// projection adapts t to an orb.Projection. The first failing point is
// recorded in *failed and mapped to NaN.
func projection(t proj.Transformer, failed *error) orb.Projection {
	return func(p orb.Point) orb.Point {
		x, y, err := t(p[0], p[1])
		if err != nil {
			if failed != nil && *failed == nil {
				*failed = fmt.Errorf("point %v: %w", p, err)
			}
			return orb.Point{math.NaN(), math.NaN()}
		}
		return orb.Point{x, y}
	}
}

// Transform returns the point projection from one CRS to another. Points
// the projection cannot map come back as NaN.
func Transform(from, to string) (orb.Projection, error) {
	from, to = normalizeCRS(from), normalizeCRS(to)
	if from == to {
		return func(p orb.Point) orb.Point { return p }, nil
	}

	t, err := transformer(from, to)
	if err != nil {
		return nil, err
	}
	return projection(t, nil), nil
}

// Reproject returns a copy of the dataset in the target CRS. The source
// dataset is left untouched.
func (d *Dataset) Reproject(to string) (*Dataset, error) {
	if d.CRS == "" {
		return nil, fmt.Errorf("dataset %s has no CRS", d.Name)
	}

	from, to := normalizeCRS(d.CRS), normalizeCRS(to)
	fn := func(p orb.Point) orb.Point { return p }
	var failed error
	if from != to {
		t, err := transformer(from, to)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		fn = projection(t, &failed)
	}

	result := New(d.Name, to)
	result.Features = make([]*geojson.Feature, 0, len(d.Features))
	for _, f := range d.Features {
		clone := *f
		if f.Geometry != nil {
			clone.Geometry = project.Geometry(orb.Clone(f.Geometry), fn)
		}
		clone.BBox = nil
		result.Features = append(result.Features, &clone)
	}
	if failed != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name, failed)
	}
	return result, nil
}

func normalizeCRS(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "CRS84" || code == "WGS84" {
		return CRSWGS84
	}
	return code
}
