// internal/raster/frame.go - Raster georeferencing
package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/valpere/mapforge/pkg/geom"
)

// GeoTransform maps pixel (col, row) to world coordinates:
// X = gt[0] + col*gt[1] + row*gt[2], Y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

// NorthUp builds the transform of an unrotated raster anchored at its
// upper-left corner
func NorthUp(upperLeft orb.Point, pixelWidth, pixelHeight float64) GeoTransform {
	return GeoTransform{upperLeft[0], pixelWidth, 0, upperLeft[1], 0, -pixelHeight}
}

// Frame is the pixel grid and georeferencing shared by co-registered rasters
type Frame struct {
	Transform GeoTransform
	Width     int
	Height    int
	CRS       string
}

// Pixels returns width*height
func (f Frame) Pixels() int {
	return f.Width * f.Height
}

// Bounds returns the world extent covered by the frame
func (f Frame) Bounds() geom.BoundingBox {
	gt := f.Transform
	x1 := gt[0] + float64(f.Width)*gt[1]
	y1 := gt[3] + float64(f.Height)*gt[5]
	return geom.BoundingBox{
		XMin: math.Min(gt[0], x1),
		YMin: math.Min(gt[3], y1),
		XMax: math.Max(gt[0], x1),
		YMax: math.Max(gt[3], y1),
	}
}

// ToPixel converts a world coordinate to fractional pixel space (y down)
func (f Frame) ToPixel(p orb.Point) (float64, float64) {
	gt := f.Transform
	return (p[0] - gt[0]) / gt[1], (p[1] - gt[3]) / gt[5]
}

// SameGrid reports whether two frames are pixel-aligned and equally sized
func (f Frame) SameGrid(other Frame) bool {
	return f.Width == other.Width && f.Height == other.Height && f.Transform == other.Transform
}

// WriteWorldFile writes the six-line ESRI world file for the frame
func (f Frame) WriteWorldFile(w io.Writer) error {
	gt := f.Transform
	// world files reference the centre of the upper-left pixel
	values := []float64{
		gt[1],
		gt[4],
		gt[2],
		gt[5],
		gt[0] + gt[1]/2 + gt[2]/2,
		gt[3] + gt[4]/2 + gt[5]/2,
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(w, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

// ReadWorldFile parses a world file into a geotransform
func ReadWorldFile(r io.Reader) (GeoTransform, error) {
	var values []float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return GeoTransform{}, fmt.Errorf("invalid world file value %q: %w", line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return GeoTransform{}, err
	}
	if len(values) != 6 {
		return GeoTransform{}, fmt.Errorf("world file must have 6 values, got %d", len(values))
	}

	a, d, b, e, c, f := values[0], values[1], values[2], values[3], values[4], values[5]
	return GeoTransform{
		c - a/2 - b/2, a, b,
		f - d/2 - e/2, d, e,
	}, nil
}
