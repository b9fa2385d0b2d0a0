// internal/vector/clip.go - Clipping datasets to a rectangle
package vector

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/valpere/mapforge/pkg/geom"
)

// Clip returns the features cut to box. Features falling entirely outside
// the box are dropped.
func (d *Dataset) Clip(box geom.BoundingBox) *Dataset {
	bound := box.Bound()
	result := New(d.Name, d.CRS)

	for _, f := range d.Features {
		if f.Geometry == nil || !f.Geometry.Bound().Intersects(bound) {
			continue
		}

		clipped := clip.Geometry(bound, orb.Clone(f.Geometry))
		if isEmpty(clipped) {
			continue
		}

		clone := *f
		clone.Geometry = clipped
		clone.BBox = nil
		result.Features = append(result.Features, &clone)
	}

	return result
}

// isEmpty reports whether clipping left nothing to draw
func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) < 2
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) >= 2 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(g) < 3
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) < 3
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) >= 3 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, member := range g {
			if !isEmpty(member) {
				return false
			}
		}
		return true
	case orb.Bound:
		return g.IsEmpty()
	default:
		return false
	}
}
