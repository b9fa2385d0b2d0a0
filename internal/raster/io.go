// internal/raster/io.go - Raster persistence and rendering
package raster

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/valpere/mapforge/internal"
)

// WorldFilePath returns the .tfw path next to a .tif/.tiff file
func WorldFilePath(tiffPath string) string {
	return strings.TrimSuffix(tiffPath, filepath.Ext(tiffPath)) + ".tfw"
}

// RGBA returns bands 1-3 as colour and band 4 as alpha. Rasters with fewer
// than 4 bands render opaque; a single band renders as grey.
func (r *Raster) RGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Frame.Width, r.Frame.Height))

	red := r.bands[0]
	green, blue := red, red
	if len(r.bands) >= ColorBands {
		green, blue = r.bands[1], r.bands[2]
	}

	for i := range red {
		o := i * 4
		img.Pix[o] = red[i]
		img.Pix[o+1] = green[i]
		img.Pix[o+2] = blue[i]
		if len(r.bands) >= AlphaBand {
			img.Pix[o+3] = r.bands[AlphaBand-1][i]
		} else {
			img.Pix[o+3] = Opaque
		}
	}
	return img
}

// RGB returns bands 1-3 as an opaque image, ignoring band 4
func (r *Raster) RGB() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Frame.Width, r.Frame.Height))
	src := r.RGBA()
	for i := 0; i < len(src.Pix); i += 4 {
		img.Pix[i] = src.Pix[i]
		img.Pix[i+1] = src.Pix[i+1]
		img.Pix[i+2] = src.Pix[i+2]
		img.Pix[i+3] = Opaque
	}
	return img
}

// FromImage creates a 4-band raster on frame from img, which must match the
// frame size
func FromImage(frame Frame, img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Dx() != frame.Width || b.Dy() != frame.Height {
		return nil, internal.NewError(internal.ErrorCodeRaster,
			fmt.Sprintf("image size %dx%d does not match frame %dx%d", b.Dx(), b.Dy(), frame.Width, frame.Height), nil)
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	r, err := New(frame, 0, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	for y := 0; y < frame.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < frame.Width; x++ {
			i := y*frame.Width + x
			for band := 0; band < CanvasBands; band++ {
				r.bands[band][i] = row[x*4+band]
			}
		}
	}
	return r, nil
}

// SaveTIFF writes the raster as a deflate-compressed TIFF plus a world file
func (r *Raster) SaveTIFF(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create raster directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create raster file", err)
	}

	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	if err := tiff.Encode(file, r.RGBA(), opts); err != nil {
		file.Close()
		return internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("failed to encode %s", path), err)
	}
	if err := file.Close(); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to close raster file", err)
	}

	tfw, err := os.Create(WorldFilePath(path))
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create world file", err)
	}
	if err := r.Frame.WriteWorldFile(tfw); err != nil {
		tfw.Close()
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to write world file", err)
	}
	return tfw.Close()
}

// LoadTIFF reads a raster written by SaveTIFF. The georeferencing comes
// from the accompanying world file.
func LoadTIFF(path, crs string) (*Raster, error) {
	frame, err := ReadFrame(path, crs)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to open raster", err)
	}
	defer file.Close()

	img, err := tiff.Decode(file)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("failed to decode %s", path), err)
	}

	b := img.Bounds()
	frame.Width, frame.Height = b.Dx(), b.Dy()
	return FromImage(frame, img)
}

// ReadFrame recovers a raster's frame from its world file and TIFF header
// without decoding pixel data
func ReadFrame(path, crs string) (Frame, error) {
	tfw, err := os.Open(WorldFilePath(path))
	if err != nil {
		return Frame{}, internal.NewError(internal.ErrorCodeFileSystem, "failed to open world file", err)
	}
	defer tfw.Close()

	gt, err := ReadWorldFile(tfw)
	if err != nil {
		return Frame{}, internal.NewError(internal.ErrorCodeRaster, "invalid world file", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return Frame{}, internal.NewError(internal.ErrorCodeFileSystem, "failed to open raster", err)
	}
	defer file.Close()

	cfg, err := tiff.DecodeConfig(file)
	if err != nil {
		return Frame{}, internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("failed to read %s header", path), err)
	}

	return Frame{Transform: gt, Width: cfg.Width, Height: cfg.Height, CRS: crs}, nil
}

// SaveJPEG renders bands 1-3 to a JPEG file
func (r *Raster) SaveJPEG(path string, quality int) error {
	return WriteJPEG(path, r.RGB(), quality)
}

// WriteJPEG encodes img to path, creating parent directories
func WriteJPEG(path string, img image.Image, quality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create image directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create image file", err)
	}

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: quality}); err != nil {
		file.Close()
		return internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("failed to encode %s", path), err)
	}
	return file.Close()
}
