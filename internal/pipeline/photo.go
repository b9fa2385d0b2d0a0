// internal/pipeline/photo.go - Photographic image sources
package pipeline

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/slice"
)

// PhotoSource supplies the photographic image co-registered with a canvas
type PhotoSource interface {
	Photo(ctx context.Context, frame raster.Frame) (image.Image, error)
}

// FileSource reads a photograph already covering the project extent and
// resamples it to the canvas size
type FileSource struct {
	Path string
}

// Photo implements PhotoSource
func (s FileSource) Photo(ctx context.Context, frame raster.Frame) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := slice.LoadImage(s.Path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeRaster, "failed to read photograph", err)
	}
	return Resample(img, frame.Width, frame.Height), nil
}

// CanvasSource renders the canvas itself, used when no photograph is
// available
type CanvasSource struct {
	Canvas *raster.Raster
}

// Photo implements PhotoSource
func (s CanvasSource) Photo(ctx context.Context, frame raster.Frame) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Canvas == nil || !s.Canvas.Frame.SameGrid(frame) {
		return nil, internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("canvas does not match %dx%d frame", frame.Width, frame.Height), nil)
	}
	return s.Canvas.RGB(), nil
}

// Resample scales img to width x height with a Catmull-Rom kernel. An image
// already at that size is returned as is.
func Resample(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
