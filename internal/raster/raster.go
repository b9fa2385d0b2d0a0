// internal/raster/raster.go - Multi-band 8-bit rasters and the project canvas
package raster

import (
	"fmt"
	"math"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/pkg/geom"
)

// Canvas band layout
const (
	CanvasBands = 4
	ColorBands  = 3
	AlphaBand   = 4
	Opaque      = 255
)

// Raster is a stack of equally sized 8-bit bands sharing one frame.
// Bands are numbered from 1.
type Raster struct {
	Frame Frame
	bands [][]uint8
}

// New creates a raster whose band i is filled with fill[i-1]
func New(frame Frame, fill ...uint8) (*Raster, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("invalid raster size %dx%d", frame.Width, frame.Height), nil)
	}
	if len(fill) == 0 {
		return nil, internal.NewError(internal.ErrorCodeRaster, "raster needs at least one band", nil)
	}

	r := &Raster{Frame: frame, bands: make([][]uint8, len(fill))}
	n := frame.Pixels()
	for i, v := range fill {
		band := make([]uint8, n)
		if v != 0 {
			for j := range band {
				band[j] = v
			}
		}
		r.bands[i] = band
	}
	return r, nil
}

// CanvasFrame returns the frame of the project canvas covering box. Width
// and height are ceil(extent/resolution) and must be multiples of
// sliceFactor.
func CanvasFrame(box geom.BoundingBox, resolution float64, sliceFactor int, crs string) (Frame, error) {
	if err := box.Validate(); err != nil {
		return Frame{}, internal.NewError(internal.ErrorCodeGeometry, "invalid canvas extent", err)
	}
	if resolution <= 0 || sliceFactor <= 0 {
		return Frame{}, internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("invalid resolution %g or slice factor %d", resolution, sliceFactor), nil)
	}

	width := pixelCount(box.Width(), resolution)
	height := pixelCount(box.Height(), resolution)

	if width%sliceFactor != 0 || height%sliceFactor != 0 {
		return Frame{}, internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("canvas size %dx%d is not a multiple of slice factor %d", width, height, sliceFactor), nil)
	}

	return Frame{
		Transform: NorthUp(box.UpperLeft(), resolution, resolution),
		Width:     width,
		Height:    height,
		CRS:       crs,
	}, nil
}

// CanvasFill returns the initial canvas band values. Bands 1-3 start at
// zero and band 4 is opaque.
func CanvasFill() []uint8 {
	return []uint8{0, 0, 0, Opaque}
}

// pixelCount is ceil(extent/resolution), tolerant of float noise
func pixelCount(extent, resolution float64) int {
	return int(math.Ceil(extent/resolution - 1e-9))
}

// BandCount returns the number of bands
func (r *Raster) BandCount() int {
	return len(r.bands)
}

// Band returns a copy of band i
func (r *Raster) Band(i int) ([]uint8, error) {
	if err := r.checkBand(i); err != nil {
		return nil, err
	}
	return append([]uint8(nil), r.bands[i-1]...), nil
}

// SetBand replaces band i wholesale
func (r *Raster) SetBand(i int, buf []uint8) error {
	if err := r.checkBand(i); err != nil {
		return err
	}
	if len(buf) != r.Frame.Pixels() {
		return internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("band %d buffer has %d pixels, expected %d", i, len(buf), r.Frame.Pixels()), nil)
	}
	copy(r.bands[i-1], buf)
	return nil
}

// Pixel returns the values of every band at (x, y)
func (r *Raster) Pixel(x, y int) []uint8 {
	idx := y*r.Frame.Width + x
	values := make([]uint8, len(r.bands))
	for i, band := range r.bands {
		values[i] = band[idx]
	}
	return values
}

func (r *Raster) checkBand(i int) error {
	if i < 1 || i > len(r.bands) {
		return internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("band %d out of range 1..%d", i, len(r.bands)), nil)
	}
	return nil
}
