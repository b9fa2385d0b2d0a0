// internal/raster/rasterize.go - Burning vector geometries into bands
package raster

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"golang.org/x/image/vector"

	"github.com/valpere/mapforge/internal"
)

// coverageThreshold is the minimum polygon coverage for a pixel to burn,
// which approximates "pixel centre inside polygon"
const coverageThreshold = 128

// BurnOptions tunes how geometries map to pixels
type BurnOptions struct {
	// AllTouched burns every pixel a polygon boundary passes through, on top
	// of its interior. Lines and points always burn every pixel they touch.
	AllTouched bool
}

// Burn writes values[b] into band b+1 of r for every pixel covered by any
// of geoms.
func Burn(r *Raster, geoms []orb.Geometry, values []uint8, opts BurnOptions) error {
	if len(values) == 0 || len(values) > r.BandCount() {
		return internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("cannot burn %d values into %d bands", len(values), r.BandCount()), nil)
	}

	mask, err := Coverage(r.Frame, geoms, opts)
	if err != nil {
		return err
	}

	for b, v := range values {
		band := r.bands[b]
		for i, hit := range mask {
			if hit {
				band[i] = v
			}
		}
	}
	return nil
}

// Coverage returns the per-pixel set of pixels covered by geoms
func Coverage(frame Frame, geoms []orb.Geometry, opts BurnOptions) ([]bool, error) {
	if frame.Transform[2] != 0 || frame.Transform[4] != 0 {
		return nil, internal.NewError(internal.ErrorCodeRaster, "rotated rasters are not supported", nil)
	}

	c := &coverage{
		frame: frame,
		mask:  make([]bool, frame.Pixels()),
		bound: frame.Bounds().Bound(),
	}

	for _, g := range geoms {
		if g == nil || !g.Bound().Intersects(c.bound) {
			continue
		}
		c.add(g, opts)
	}
	c.fillPolygons()

	return c.mask, nil
}

type coverage struct {
	frame Frame
	mask  []bool
	bound orb.Bound

	// polygon rings gathered for a single fill pass
	fill      *vector.Rasterizer
	ringCount int
}

func (c *coverage) add(g orb.Geometry, opts BurnOptions) {
	switch g := g.(type) {
	case orb.Point:
		c.point(g)
	case orb.MultiPoint:
		for _, p := range g {
			c.point(p)
		}
	case orb.LineString:
		c.line(g)
	case orb.MultiLineString:
		for _, ls := range g {
			c.line(ls)
		}
	case orb.Ring:
		c.add(orb.Polygon{g}, opts)
	case orb.Polygon:
		c.polygon(g, opts)
	case orb.MultiPolygon:
		for _, p := range g {
			c.polygon(p, opts)
		}
	case orb.Bound:
		c.polygon(g.ToPolygon(), opts)
	case orb.Collection:
		for _, member := range g {
			c.add(member, opts)
		}
	}
}

func (c *coverage) set(x, y int) {
	if x < 0 || y < 0 || x >= c.frame.Width || y >= c.frame.Height {
		return
	}
	c.mask[y*c.frame.Width+x] = true
}

func (c *coverage) point(p orb.Point) {
	px, py := c.frame.ToPixel(p)
	c.set(int(math.Floor(px)), int(math.Floor(py)))
}

func (c *coverage) line(ls orb.LineString) {
	if len(ls) == 1 {
		c.point(ls[0])
		return
	}
	for i := 0; i+1 < len(ls); i++ {
		x0, y0 := c.frame.ToPixel(ls[i])
		x1, y1 := c.frame.ToPixel(ls[i+1])
		c.segment(x0, y0, x1, y1)
	}
}

// segment visits every cell the segment passes through (supercover walk)
func (c *coverage) segment(x0, y0, x1, y1 float64) {
	// keep the walk bounded when one end lies far outside the grid
	w, h := float64(c.frame.Width), float64(c.frame.Height)
	if !clipSegment(&x0, &y0, &x1, &y1, w, h) {
		return
	}

	ix, iy := int(math.Floor(x0)), int(math.Floor(y0))
	ex, ey := int(math.Floor(x1)), int(math.Floor(y1))
	dx, dy := x1-x0, y1-y0

	stepX, tMaxX, tDeltaX := walkAxis(x0, dx, ix)
	stepY, tMaxY, tDeltaY := walkAxis(y0, dy, iy)

	c.set(ix, iy)
	n := abs(ex-ix) + abs(ey-iy)
	for i := 0; i < n; i++ {
		if tMaxX < tMaxY {
			ix += stepX
			tMaxX += tDeltaX
		} else {
			iy += stepY
			tMaxY += tDeltaY
		}
		c.set(ix, iy)
	}
}

func walkAxis(origin, delta float64, cell int) (step int, tMax, tDelta float64) {
	switch {
	case delta > 0:
		return 1, (float64(cell+1) - origin) / delta, 1 / delta
	case delta < 0:
		return -1, (origin - float64(cell)) / -delta, -1 / delta
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

// clipSegment is Liang-Barsky against [0,w]x[0,h]
func clipSegment(x0, y0, x1, y1 *float64, w, h float64) bool {
	t0, t1 := 0.0, 1.0
	dx, dy := *x1-*x0, *y1-*y0

	edges := [4][2]float64{
		{-dx, *x0},
		{dx, w - *x0},
		{-dy, *y0},
		{dy, h - *y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return false
			}
			t1 = math.Min(t1, r)
		}
	}

	ox, oy := *x0, *y0
	*x0, *y0 = ox+t0*dx, oy+t0*dy
	*x1, *y1 = ox+t1*dx, oy+t1*dy
	return true
}

func (c *coverage) polygon(p orb.Polygon, opts BurnOptions) {
	if len(p) == 0 {
		return
	}

	clipped := clip.Polygon(c.bound, p.Clone())
	if len(clipped) == 0 || len(clipped[0]) < 3 {
		if opts.AllTouched {
			c.outline(p)
		}
		return
	}

	if c.fill == nil {
		c.fill = vector.NewRasterizer(c.frame.Width, c.frame.Height)
		c.fill.DrawOp = draw.Src
	}

	for i, ring := range clipped {
		if len(ring) < 3 {
			continue
		}
		// outer rings and holes must wind in opposite directions
		wantOuter := i == 0
		if (ring.Orientation() == orb.CCW) != wantOuter {
			ring = ring.Clone()
			ring.Reverse()
		}
		c.trace(ring)
	}

	if opts.AllTouched {
		c.outline(p)
	}
}

func (c *coverage) trace(ring orb.Ring) {
	x, y := c.frame.ToPixel(ring[0])
	c.fill.MoveTo(float32(x), float32(y))
	for _, pt := range ring[1:] {
		x, y = c.frame.ToPixel(pt)
		c.fill.LineTo(float32(x), float32(y))
	}
	c.fill.ClosePath()
	c.ringCount++
}

func (c *coverage) outline(p orb.Polygon) {
	for _, ring := range p {
		if len(ring) == 0 {
			continue
		}
		c.line(orb.LineString(ring))
		c.line(orb.LineString{ring[len(ring)-1], ring[0]})
	}
}

func (c *coverage) fillPolygons() {
	if c.fill == nil || c.ringCount == 0 {
		return
	}

	alpha := image.NewAlpha(image.Rect(0, 0, c.frame.Width, c.frame.Height))
	c.fill.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < c.frame.Height; y++ {
		row := alpha.Pix[y*alpha.Stride : y*alpha.Stride+c.frame.Width]
		for x, a := range row {
			if a >= coverageThreshold {
				c.mask[y*c.frame.Width+x] = true
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
