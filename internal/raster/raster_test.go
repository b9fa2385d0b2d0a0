// internal/raster/raster_test.go - Unit tests for rasters and the canvas
package raster

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/pkg/geom"
)

func newCanvas(box geom.BoundingBox) (*Raster, error) {
	frame, err := CanvasFrame(box, 10, 500, "EPSG:2154")
	if err != nil {
		return nil, err
	}
	return New(frame, CanvasFill()...)
}

func TestCanvasReferenceScenario(t *testing.T) {
	box := geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5000, YMax: 5000}

	canvas, err := newCanvas(box)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if canvas.Frame.Width != 500 || canvas.Frame.Height != 500 {
		t.Errorf("Expected 500x500, got %dx%d", canvas.Frame.Width, canvas.Frame.Height)
	}
	if canvas.BandCount() != CanvasBands {
		t.Errorf("Expected %d bands, got %d", CanvasBands, canvas.BandCount())
	}

	want := GeoTransform{0, 10, 0, 5000, 0, -10}
	if canvas.Frame.Transform != want {
		t.Errorf("Expected geotransform %v, got %v", want, canvas.Frame.Transform)
	}

	for i := 1; i <= CanvasBands; i++ {
		band, err := canvas.Band(i)
		if err != nil {
			t.Fatalf("Expected no error reading band %d, got %v", i, err)
		}
		expected := uint8(0)
		if i == AlphaBand {
			expected = Opaque
		}
		for j, v := range band {
			if v != expected {
				t.Fatalf("Expected band %d pixel %d to be %d, got %d", i, j, expected, v)
			}
		}
	}
}

func TestCanvasFrameDimensionInvariant(t *testing.T) {
	tests := []struct {
		name    string
		box     geom.BoundingBox
		wantErr bool
	}{
		{name: "one tile", box: geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5000, YMax: 5000}},
		{name: "offset multiple", box: geom.BoundingBox{XMin: 650000, YMin: 6860000, XMax: 665000, YMax: 6870000}},
		{name: "fractional origin", box: geom.BoundingBox{XMin: 0.5, YMin: 0.25, XMax: 10000.5, YMax: 5000.25}},
		{name: "width not a multiple", box: geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5010, YMax: 5000}, wantErr: true},
		{name: "height not a multiple", box: geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5000, YMax: 7500}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := CanvasFrame(tt.box, 10, 500, "EPSG:2154")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanvasFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !internal.HasCode(err, internal.ErrorCodeRaster) {
					t.Errorf("Expected %s error, got %v", internal.ErrorCodeRaster, err)
				}
				return
			}
			if frame.Width%500 != 0 || frame.Height%500 != 0 {
				t.Errorf("Expected dimensions multiple of 500, got %dx%d", frame.Width, frame.Height)
			}
		})
	}
}

func TestSetBand(t *testing.T) {
	r, err := New(Frame{Width: 2, Height: 2, Transform: NorthUp(orb.Point{0, 2}, 1, 1)}, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := r.SetBand(2, []uint8{1, 2, 3, 4}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	band, _ := r.Band(2)
	if !bytes.Equal(band, []uint8{1, 2, 3, 4}) {
		t.Errorf("Expected band [1 2 3 4], got %v", band)
	}

	band[0] = 99
	again, _ := r.Band(2)
	if again[0] != 1 {
		t.Error("Expected Band to return a copy")
	}

	if err := r.SetBand(2, []uint8{1}); err == nil {
		t.Error("Expected error for short buffer")
	}
	if err := r.SetBand(3, []uint8{1, 2, 3, 4}); err == nil {
		t.Error("Expected error for band out of range")
	}
}

func testFrame() Frame {
	return Frame{Transform: NorthUp(orb.Point{0, 10}, 1, 1), Width: 10, Height: 10}
}

func countTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}

func TestCoveragePolygon(t *testing.T) {
	frame := testFrame()

	mask, err := Coverage(frame, []orb.Geometry{geom.BoundingBox{XMin: 2, YMin: 2, XMax: 5, YMax: 5}.Polygon()}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := countTrue(mask); got != 9 {
		t.Errorf("Expected 9 pixels, got %d", got)
	}
	// world (2..5, 2..5) is pixel columns 2..4, rows 5..7
	if !mask[5*10+2] || !mask[7*10+4] {
		t.Error("Expected corner pixels of the square to be covered")
	}
	if mask[4*10+2] {
		t.Error("Expected pixel above the square to be empty")
	}
}

func TestCoveragePolygonWithHole(t *testing.T) {
	outer := geom.BoundingBox{XMin: 0, YMin: 0, XMax: 10, YMax: 10}.Polygon()[0]
	hole := geom.BoundingBox{XMin: 3, YMin: 3, XMax: 7, YMax: 7}.Polygon()[0]

	mask, err := Coverage(testFrame(), []orb.Geometry{orb.Polygon{outer, hole}}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := countTrue(mask); got != 84 {
		t.Errorf("Expected 84 pixels, got %d", got)
	}
}

func TestCoverageClipsOutsideFrame(t *testing.T) {
	big := geom.BoundingBox{XMin: -1000, YMin: -1000, XMax: 1000, YMax: 1000}.Polygon()

	mask, err := Coverage(testFrame(), []orb.Geometry{big}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := countTrue(mask); got != 100 {
		t.Errorf("Expected all 100 pixels, got %d", got)
	}
}

func TestCoverageLines(t *testing.T) {
	frame := testFrame()

	mask, err := Coverage(frame, []orb.Geometry{orb.LineString{{0.5, 5.5}, {9.5, 5.5}}}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := countTrue(mask); got != 10 {
		t.Errorf("Expected 10 pixels for a horizontal line, got %d", got)
	}
	for x := 0; x < 10; x++ {
		if !mask[4*10+x] {
			t.Errorf("Expected pixel (%d, 4) covered", x)
		}
	}

	diagonal, err := Coverage(frame, []orb.Geometry{orb.MultiLineString{{{0, 10}, {10, 0}}}}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := 0; i < 10; i++ {
		if !diagonal[i*10+i] {
			t.Errorf("Expected diagonal pixel (%d, %d) covered", i, i)
		}
	}
}

func TestCoverageAllTouched(t *testing.T) {
	// a thin sliver that covers no pixel centre
	sliver := orb.Polygon{{{2.1, 2.1}, {2.3, 2.1}, {2.3, 2.3}, {2.1, 2.3}, {2.1, 2.1}}}

	plain, _ := Coverage(testFrame(), []orb.Geometry{sliver}, BurnOptions{})
	if got := countTrue(plain); got != 0 {
		t.Errorf("Expected no pixels without all-touched, got %d", got)
	}

	touched, _ := Coverage(testFrame(), []orb.Geometry{sliver}, BurnOptions{AllTouched: true})
	if got := countTrue(touched); got != 1 {
		t.Errorf("Expected 1 pixel with all-touched, got %d", got)
	}
}

func TestBurn(t *testing.T) {
	r, _ := New(testFrame(), 255, 255, 255)

	err := Burn(r, []orb.Geometry{orb.Point{0.5, 9.5}}, []uint8{0, 0, 0}, BurnOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := r.Pixel(0, 0); !bytes.Equal(got, []uint8{0, 0, 0}) {
		t.Errorf("Expected burned pixel (0,0,0), got %v", got)
	}
	if got := r.Pixel(1, 0); !bytes.Equal(got, []uint8{255, 255, 255}) {
		t.Errorf("Expected untouched pixel (255,255,255), got %v", got)
	}

	if err := Burn(r, nil, []uint8{1, 2, 3, 4}, BurnOptions{}); err == nil {
		t.Error("Expected error burning more values than bands")
	}
}

func TestWorldFileRoundTrip(t *testing.T) {
	frame := Frame{Transform: GeoTransform{650000, 10, 0, 6870000, 0, -10}, Width: 1000, Height: 500}

	var buf bytes.Buffer
	if err := frame.WriteWorldFile(&buf); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	gt, err := ReadWorldFile(&buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gt != frame.Transform {
		t.Errorf("Expected %v, got %v", frame.Transform, gt)
	}

	bounds := frame.Bounds()
	want := geom.BoundingBox{XMin: 650000, YMin: 6865000, XMax: 660000, YMax: 6870000}
	if bounds != want {
		t.Errorf("Expected bounds %v, got %v", want, bounds)
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	box := geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5000, YMax: 5000}
	canvas, err := newCanvas(box)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := Burn(canvas, []orb.Geometry{geom.BoundingBox{XMin: 0, YMin: 0, XMax: 100, YMax: 100}.Polygon()}, []uint8{80, 200, 120}, BurnOptions{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "project.tiff")
	if err := canvas.SaveTIFF(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	loaded, err := LoadTIFF(path, "EPSG:2154")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !loaded.Frame.SameGrid(canvas.Frame) {
		t.Errorf("Expected frame %+v, got %+v", canvas.Frame, loaded.Frame)
	}
	// lower-left 10x10 pixel block was burned
	if got := loaded.Pixel(0, 499); !bytes.Equal(got, []uint8{80, 200, 120, 255}) {
		t.Errorf("Expected burned pixel, got %v", got)
	}
	if got := loaded.Pixel(0, 0); !bytes.Equal(got, []uint8{0, 0, 0, 255}) {
		t.Errorf("Expected background pixel, got %v", got)
	}
}
