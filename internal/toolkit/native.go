// internal/toolkit/native.go - In-process toolkit on orb and x/image
package toolkit

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/vector"
	"github.com/valpere/mapforge/pkg/geom"
)

// Native implements Toolkit in process
type Native struct {
	logger *zap.Logger
}

// NewNative creates the in-process toolkit
func NewNative(logger *zap.Logger) *Native {
	return &Native{logger: logging.OrNop(logger)}
}

// Convert implements Toolkit
func (n *Native) Convert(ctx context.Context, path, name, srcCRS, dstCRS string) (*vector.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := vector.Load(path, name, srcCRS)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeToolkit, fmt.Sprintf("convert %s", name), err)
	}

	out, err := d.Reproject(dstCRS)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeToolkit, fmt.Sprintf("reproject %s", name), err)
	}

	n.logger.Debug("converted dataset",
		zap.String("layer", name),
		zap.String("path", path),
		zap.String("from", d.CRS),
		zap.String("to", out.CRS),
		zap.Int("features", out.Len()))
	return out, nil
}

// Clip implements Toolkit
func (n *Native) Clip(ctx context.Context, d *vector.Dataset, box geom.BoundingBox) (*vector.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := box.Validate(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, fmt.Sprintf("clip %s", d.Name), err)
	}

	out := d.Clip(box)
	n.logger.Debug("clipped dataset",
		zap.String("layer", d.Name),
		zap.Int("before", d.Len()),
		zap.Int("after", out.Len()))
	return out, nil
}

// Rasterize implements Toolkit
func (n *Native) Rasterize(ctx context.Context, d *vector.Dataset, req RasterizeRequest) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Burn) > len(req.Background) {
		return nil, internal.NewError(internal.ErrorCodeToolkit,
			fmt.Sprintf("rasterize %s: %d burn values for %d bands", d.Name, len(req.Burn), len(req.Background)), nil)
	}

	r, err := n.CreateRaster(ctx, req.Frame, req.Background...)
	if err != nil {
		return nil, fmt.Errorf("rasterize %s: %w", d.Name, err)
	}

	var geoms []orb.Geometry
	for _, f := range d.Features {
		if f.Geometry == nil {
			continue
		}
		if req.Filter != nil && !req.Filter(f) {
			continue
		}
		geoms = append(geoms, f.Geometry)
	}

	if len(geoms) > 0 {
		if err := raster.Burn(r, geoms, req.Burn, raster.BurnOptions{AllTouched: req.AllTouched}); err != nil {
			return nil, internal.NewError(internal.ErrorCodeToolkit, fmt.Sprintf("rasterize %s", d.Name), err)
		}
	}

	n.logger.Debug("rasterized dataset",
		zap.String("layer", d.Name),
		zap.Int("burned", len(geoms)),
		zap.Bool("all_touched", req.AllTouched))
	return r, nil
}

// CreateRaster implements Toolkit
func (n *Native) CreateRaster(ctx context.Context, frame raster.Frame, fill ...uint8) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := raster.New(frame, fill...)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeToolkit, "create raster", err)
	}
	return r, nil
}

// ReadBand implements Toolkit
func (n *Native) ReadBand(r *raster.Raster, i int) ([]uint8, error) {
	return r.Band(i)
}

// WriteBand implements Toolkit
func (n *Native) WriteBand(r *raster.Raster, i int, buf []uint8) error {
	return r.SetBand(i, buf)
}

var _ Toolkit = (*Native)(nil)
