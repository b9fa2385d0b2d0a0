// pkg/geom/predicates.go - Areal geometry predicates
package geom

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// segment is a directed edge of a ring
type segment struct {
	a, b orb.Point
}

// Polygons flattens an areal geometry into its polygons
func Polygons(g orb.Geometry) ([]orb.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}, nil
	case orb.MultiPolygon:
		return []orb.Polygon(v), nil
	case orb.Ring:
		return []orb.Polygon{{v}}, nil
	case orb.Bound:
		return []orb.Polygon{v.ToPolygon()}, nil
	case orb.Collection:
		var result []orb.Polygon
		for _, member := range v {
			polys, err := Polygons(member)
			if err != nil {
				return nil, err
			}
			result = append(result, polys...)
		}
		return result, nil
	case nil:
		return nil, fmt.Errorf("nil geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type for areal predicate: %s", g.GeoJSONType())
	}
}

// Intersects reports whether two areal geometries share at least one point,
// boundary contact included.
func Intersects(a, b orb.Geometry) (bool, error) {
	pa, pb, err := polygonPair(a, b)
	if err != nil {
		return false, err
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false, nil
	}

	ea, eb := edges(pa), edges(pb)
	for _, s := range ea {
		for _, t := range eb {
			if segmentsIntersect(s, t) {
				return true, nil
			}
		}
	}

	// no edge contact: one may still lie entirely inside the other
	for _, p := range pa {
		if v, ok := firstVertex(p); ok && coveredBy(pb, v) {
			return true, nil
		}
	}
	for _, p := range pb {
		if v, ok := firstVertex(p); ok && coveredBy(pa, v) {
			return true, nil
		}
	}

	return false, nil
}

// Touches reports whether two areal geometries share boundary points but
// no interior points.
func Touches(a, b orb.Geometry) (bool, error) {
	hit, err := Intersects(a, b)
	if err != nil || !hit {
		return false, err
	}

	pa, pb, _ := polygonPair(a, b)
	return !interiorsOverlap(pa, pb), nil
}

// Contains reports whether every point of b lies in a
func Contains(a, b orb.Geometry) (bool, error) {
	pa, pb, err := polygonPair(a, b)
	if err != nil {
		return false, err
	}
	if !containsBound(a.Bound(), b.Bound()) {
		return false, nil
	}

	ea := edges(pa)
	for _, t := range edges(pb) {
		for _, s := range ea {
			if properCrossing(s, t) {
				return false, nil
			}
		}
		if !coveredBy(pa, t.a) || !coveredBy(pa, midpoint(t)) {
			return false, nil
		}
	}

	return true, nil
}

func polygonPair(a, b orb.Geometry) ([]orb.Polygon, []orb.Polygon, error) {
	pa, err := Polygons(a)
	if err != nil {
		return nil, nil, err
	}
	pb, err := Polygons(b)
	if err != nil {
		return nil, nil, err
	}
	return pa, pb, nil
}

func containsBound(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Min[1] <= inner.Min[1] &&
		outer.Max[0] >= inner.Max[0] && outer.Max[1] >= inner.Max[1]
}

func interiorsOverlap(pa, pb []orb.Polygon) bool {
	ea, eb := edges(pa), edges(pb)
	for _, s := range ea {
		for _, t := range eb {
			if properCrossing(s, t) {
				return true
			}
		}
	}

	if samplesInside(ea, pb) || samplesInside(eb, pa) {
		return true
	}

	// identical shapes have every vertex and midpoint on the shared boundary
	for _, p := range pa {
		if c, ok := interiorPoint(p); ok && strictlyInside(pb, c) {
			return true
		}
	}
	for _, p := range pb {
		if c, ok := interiorPoint(p); ok && strictlyInside(pa, c) {
			return true
		}
	}

	return false
}

func samplesInside(es []segment, polys []orb.Polygon) bool {
	for _, e := range es {
		if strictlyInside(polys, e.a) || strictlyInside(polys, midpoint(e)) {
			return true
		}
	}
	return false
}

// interiorPoint returns a point strictly inside p, convex or not: the
// midpoint of the widest span a horizontal scanline cuts through it.
func interiorPoint(p orb.Polygon) (orb.Point, bool) {
	if len(p) == 0 || len(p[0]) < 3 {
		return orb.Point{}, false
	}

	b := p.Bound()
	if b.Max[1] <= b.Min[1] {
		return orb.Point{}, false
	}

	// a scanline through a vertex can yield an empty span, so try a few levels
	for _, f := range []float64{1. / 2, 1. / 3, 2. / 3, 1. / 4, 3. / 4} {
		y := b.Min[1] + f*(b.Max[1]-b.Min[1])
		xs := scanline(p, y)

		best, width := 0.0, 0.0
		for i := 0; i+1 < len(xs); i += 2 {
			if w := xs[i+1] - xs[i]; w > width {
				best, width = (xs[i]+xs[i+1])/2, w
			}
		}
		if width == 0 {
			continue
		}
		if pt := (orb.Point{best, y}); strictlyInside([]orb.Polygon{p}, pt) {
			return pt, true
		}
	}
	return orb.Point{}, false
}

// scanline returns the sorted x coordinates where the horizontal line at y
// crosses the edges of p. Edges are half-open in y, so consecutive pairs
// bound the interior spans.
func scanline(p orb.Polygon, y float64) []float64 {
	var xs []float64
	for _, e := range edges([]orb.Polygon{p}) {
		if (e.a[1] > y) == (e.b[1] > y) {
			continue
		}
		xs = append(xs, e.a[0]+(y-e.a[1])*(e.b[0]-e.a[0])/(e.b[1]-e.a[1]))
	}
	sort.Float64s(xs)
	return xs
}

func edges(polys []orb.Polygon) []segment {
	var result []segment
	for _, p := range polys {
		for _, r := range p {
			n := len(r)
			if n < 2 {
				continue
			}
			for i := 0; i < n-1; i++ {
				result = append(result, segment{r[i], r[i+1]})
			}
			if r[0] != r[n-1] {
				result = append(result, segment{r[n-1], r[0]})
			}
		}
	}
	return result
}

func firstVertex(p orb.Polygon) (orb.Point, bool) {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}, false
	}
	return p[0][0], true
}

func midpoint(s segment) orb.Point {
	return orb.Point{(s.a[0] + s.b[0]) / 2, (s.a[1] + s.b[1]) / 2}
}

// coveredBy reports whether pt is in the closure of any polygon
func coveredBy(polys []orb.Polygon, pt orb.Point) bool {
	for _, p := range polys {
		if onBoundary(p, pt) || planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

// strictlyInside reports whether pt is in the interior of any polygon
func strictlyInside(polys []orb.Polygon, pt orb.Point) bool {
	for _, p := range polys {
		if !onBoundary(p, pt) && planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

func onBoundary(p orb.Polygon, pt orb.Point) bool {
	for _, e := range edges([]orb.Polygon{p}) {
		if cross(e.a, e.b, pt) == 0 && onSegment(e.a, e.b, pt) {
			return true
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment assumes p is collinear with a-b
func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segmentsIntersect is the closed test: shared endpoints and collinear overlap count
func segmentsIntersect(s, t segment) bool {
	d1 := sign(cross(t.a, t.b, s.a))
	d2 := sign(cross(t.a, t.b, s.b))
	d3 := sign(cross(s.a, s.b, t.a))
	d4 := sign(cross(s.a, s.b, t.b))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}

	return (d1 == 0 && onSegment(t.a, t.b, s.a)) ||
		(d2 == 0 && onSegment(t.a, t.b, s.b)) ||
		(d3 == 0 && onSegment(s.a, s.b, t.a)) ||
		(d4 == 0 && onSegment(s.a, s.b, t.b))
}

// properCrossing is true when the segments cross at a single interior point
func properCrossing(s, t segment) bool {
	d1 := sign(cross(t.a, t.b, s.a))
	d2 := sign(cross(t.a, t.b, s.b))
	d3 := sign(cross(s.a, s.b, t.a))
	d4 := sign(cross(s.a, s.b, t.b))
	return d1*d2 < 0 && d3*d4 < 0
}
