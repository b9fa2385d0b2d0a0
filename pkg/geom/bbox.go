// pkg/geom/bbox.go - Bounding box value type
package geom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// BoundingBox is an axis-aligned rectangle in the deployment's projected CRS
type BoundingBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// NewBoundingBox validates and returns a bounding box
func NewBoundingBox(xmin, ymin, xmax, ymax float64) (BoundingBox, error) {
	b := BoundingBox{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return b, nil
}

// FromBound converts an orb bound to a bounding box without validation
func FromBound(b orb.Bound) BoundingBox {
	return BoundingBox{XMin: b.Min[0], YMin: b.Min[1], XMax: b.Max[0], YMax: b.Max[1]}
}

// ParseBoundingBox parses "xmin,ymin,xmax,ymax"
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box must have 4 comma-separated values, got %d", len(parts))
	}

	var values [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bounding box value %q: %w", part, err)
		}
		values[i] = v
	}

	return NewBoundingBox(values[0], values[1], values[2], values[3])
}

// Validate checks xmax > xmin and ymax > ymin
func (b BoundingBox) Validate() error {
	if !(b.XMax > b.XMin) {
		return fmt.Errorf("invalid bounding box: xmax (%g) must be greater than xmin (%g)", b.XMax, b.XMin)
	}
	if !(b.YMax > b.YMin) {
		return fmt.Errorf("invalid bounding box: ymax (%g) must be greater than ymin (%g)", b.YMax, b.YMin)
	}
	return nil
}

// Width returns xmax - xmin
func (b BoundingBox) Width() float64 {
	return b.XMax - b.XMin
}

// Height returns ymax - ymin
func (b BoundingBox) Height() float64 {
	return b.YMax - b.YMin
}

// LowerLeft returns the (xmin, ymin) corner
func (b BoundingBox) LowerLeft() orb.Point {
	return orb.Point{b.XMin, b.YMin}
}

// UpperLeft returns the (xmin, ymax) corner
func (b BoundingBox) UpperLeft() orb.Point {
	return orb.Point{b.XMin, b.YMax}
}

// Bound returns the equivalent orb bound
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.XMin, b.YMin}, Max: orb.Point{b.XMax, b.YMax}}
}

// Polygon returns the box as a closed counter-clockwise ring of 5 points
func (b BoundingBox) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{b.XMin, b.YMin},
		{b.XMax, b.YMin},
		{b.XMax, b.YMax},
		{b.XMin, b.YMax},
		{b.XMin, b.YMin},
	}}
}

// WKT returns the box as a WKT polygon
func (b BoundingBox) WKT() string {
	return wkt.MarshalString(b.Polygon())
}

// String returns "xmin,ymin,xmax,ymax"
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.XMin, b.YMin, b.XMax, b.YMax)
}

// ParseWKT decodes a WKT string into an orb geometry
func ParseWKT(s string) (orb.Geometry, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid WKT: %w", err)
	}
	return g, nil
}

// MarshalWKT encodes a geometry as WKT
func MarshalWKT(g orb.Geometry) string {
	return wkt.MarshalString(g)
}
