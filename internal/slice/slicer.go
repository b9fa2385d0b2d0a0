// internal/slice/slicer.go - Coordinate-named tile export
package slice

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/tiff"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/raster"
)

// Tile is one exported tile pair
type Tile struct {
	CoordX   int
	CoordY   int
	Size     int
	Thematic string
	Photo    string
}

// ThematicName returns the file name of the thematic tile at (x, y)
func ThematicName(x, y, size int) string {
	return fmt.Sprintf("%d_%d_veget_%d.jpg", x, y, size)
}

// PhotoName returns the file name of the photographic tile at (x, y)
func PhotoName(x, y, size int) string {
	return fmt.Sprintf("%d_%d_%d.jpg", x, y, size)
}

// BaseCoordinates converts a lower-left corner to kilometre units
func BaseCoordinates(lowerLeft orb.Point) (int, int) {
	return int(math.Floor(lowerLeft[0] / 1000)), int(math.Floor(lowerLeft[1] / 1000))
}

// Slicer cuts co-registered image pairs into square tiles
type Slicer struct {
	sliceFactor int
	resolution  float64
	quality     int
	logger      *zap.Logger
	encode      func(path string, img image.Image, quality int) error
}

// NewSlicer creates a slicer emitting sliceFactor-pixel tiles from images
// at resolution ground units per pixel
func NewSlicer(sliceFactor int, resolution float64, quality int, logger *zap.Logger) *Slicer {
	return &Slicer{
		sliceFactor: sliceFactor,
		resolution:  resolution,
		quality:     quality,
		logger:      logging.OrNop(logger),
		encode:      raster.WriteJPEG,
	}
}

// Slice resets dir and writes every complete tile of thematic and photo
// into it. Rows are emitted from the bottom of the image up so tile Y
// coordinates ascend. A failed tile write does not stop the remaining
// tiles; the failures are returned together with the tiles written.
func (s *Slicer) Slice(dir string, thematic, photo image.Image, lowerLeft orb.Point) ([]Tile, error) {
	if s.sliceFactor <= 0 {
		return nil, internal.NewError(internal.ErrorCodeTiling, fmt.Sprintf("invalid slice factor %d", s.sliceFactor), nil)
	}

	tb, pb := thematic.Bounds(), photo.Bounds()
	if tb.Dx() != pb.Dx() || tb.Dy() != pb.Dy() {
		return nil, internal.NewError(internal.ErrorCodeTiling,
			fmt.Sprintf("image sizes differ: %dx%d and %dx%d", tb.Dx(), tb.Dy(), pb.Dx(), pb.Dy()), nil)
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to reset slices directory", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to create slices directory", err)
	}

	baseX, baseY := BaseCoordinates(lowerLeft)
	width, height := tb.Dx(), tb.Dy()
	sf := s.sliceFactor

	var tiles []Tile
	var errs error

	rows := (height + sf - 1) / sf
	for row := rows - 1; row >= 0; row-- {
		imgY := row * sf
		for imgX := 0; imgX < width; imgX += sf {
			if imgX+sf > width || imgY+sf > height {
				continue
			}

			tile := Tile{
				CoordX: baseX + s.kilometres(imgX),
				CoordY: baseY + s.kilometres(height-imgY-sf),
				Size:   sf,
			}
			tile.Thematic = filepath.Join(dir, ThematicName(tile.CoordX, tile.CoordY, sf))
			tile.Photo = filepath.Join(dir, PhotoName(tile.CoordX, tile.CoordY, sf))

			ok := true
			if err := s.write(tile.Thematic, thematic, tb.Min, imgX, imgY); err != nil {
				errs = multierr.Append(errs, err)
				ok = false
			}
			if err := s.write(tile.Photo, photo, pb.Min, imgX, imgY); err != nil {
				errs = multierr.Append(errs, err)
				ok = false
			}
			if ok {
				tiles = append(tiles, tile)
			}
		}
	}

	failed := len(multierr.Errors(errs))
	s.logger.Info("sliced images",
		zap.String("dir", dir),
		zap.Int("tiles", len(tiles)),
		zap.Int("failed_files", failed))

	if errs != nil {
		return tiles, internal.NewError(internal.ErrorCodeTiling, fmt.Sprintf("%d tile files failed", failed), errs)
	}
	return tiles, nil
}

// Failures returns the number of tile files reported failed by a Slice
// error
func Failures(err error) int {
	if err == nil {
		return 0
	}
	var appErr *internal.Error
	if errors.As(err, &appErr) && appErr.Code == internal.ErrorCodeTiling {
		if n := len(multierr.Errors(appErr.Cause)); n > 0 {
			return n
		}
	}
	return 1
}

// kilometres converts a pixel offset to whole kilometres
func (s *Slicer) kilometres(pixels int) int {
	return int(math.Floor(float64(pixels) * s.resolution / 1000))
}

func (s *Slicer) write(path string, img image.Image, origin image.Point, x, y int) error {
	rect := image.Rect(x, y, x+s.sliceFactor, y+s.sliceFactor).Add(origin)
	if err := s.encode(path, crop(img, rect), s.quality); err != nil {
		s.logger.Warn("tile write failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, rect image.Rectangle) image.Image {
	if sub, ok := img.(subImager); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return dst
}

// LoadImage decodes a JPEG, PNG or TIFF file
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeTiling, fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeTiling, fmt.Sprintf("failed to decode %s", path), err)
	}
	return img, nil
}
