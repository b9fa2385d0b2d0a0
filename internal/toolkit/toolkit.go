// internal/toolkit/toolkit.go - Geospatial processing capabilities
package toolkit

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/vector"
	"github.com/valpere/mapforge/pkg/geom"
)

// Filter selects the features a rasterization burns
type Filter func(*geojson.Feature) bool

// RasterizeRequest describes one vector-to-raster conversion
type RasterizeRequest struct {
	// Frame is the output extent, size and georeferencing
	Frame raster.Frame
	// Background holds the initial value of each output band
	Background []uint8
	// Burn holds the value written into each band for covered pixels
	Burn []uint8
	// Filter restricts the burned features; nil burns all of them
	Filter Filter
	// AllTouched burns every pixel a polygon boundary touches
	AllTouched bool
}

// Toolkit is the narrow set of geoprocessing operations the build needs.
// Every call is a whole operation that either succeeds or fails.
type Toolkit interface {
	// Convert reads a vector dataset and reprojects it to dstCRS. srcCRS is
	// assumed when the dataset does not name its own CRS.
	Convert(ctx context.Context, path, name, srcCRS, dstCRS string) (*vector.Dataset, error)
	// Clip cuts a dataset to box
	Clip(ctx context.Context, d *vector.Dataset, box geom.BoundingBox) (*vector.Dataset, error)
	// Rasterize burns a dataset into a new raster
	Rasterize(ctx context.Context, d *vector.Dataset, req RasterizeRequest) (*raster.Raster, error)
	// CreateRaster creates a raster with one band per fill value
	CreateRaster(ctx context.Context, frame raster.Frame, fill ...uint8) (*raster.Raster, error)
	// ReadBand returns band i of r
	ReadBand(r *raster.Raster, i int) ([]uint8, error)
	// WriteBand replaces band i of r
	WriteBand(r *raster.Raster, i int, buf []uint8) error
}
