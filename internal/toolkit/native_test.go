// internal/toolkit/native_test.go - Unit tests for the in-process toolkit
package toolkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/vector"
	"github.com/valpere/mapforge/pkg/geom"
)

func frame() raster.Frame {
	return raster.Frame{Transform: raster.NorthUp(orb.Point{0, 10}, 1, 1), Width: 10, Height: 10, CRS: vector.CRSLambert93}
}

func TestRasterizeWithFilter(t *testing.T) {
	kit := NewNative(nil)

	d := vector.New("FORMATION_VEGETALE", vector.CRSLambert93)
	left := geojson.NewFeature(geom.BoundingBox{XMin: 0, YMin: 0, XMax: 5, YMax: 10}.Polygon())
	left.Properties["ESSENCE"] = "Hêtre"
	right := geojson.NewFeature(geom.BoundingBox{XMin: 5, YMin: 0, XMax: 10, YMax: 10}.Polygon())
	right.Properties["ESSENCE"] = "Pin"
	d.Features = []*geojson.Feature{left, right}

	r, err := kit.Rasterize(context.Background(), d, RasterizeRequest{
		Frame:      frame(),
		Background: []uint8{0, 0, 0},
		Burn:       []uint8{80, 200, 120},
		Filter: func(f *geojson.Feature) bool {
			return f.Properties.MustString("ESSENCE", "") == "Hêtre"
		},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := r.Pixel(0, 0); got[0] != 80 || got[1] != 200 || got[2] != 120 {
		t.Errorf("Expected filtered feature burned, got %v", got)
	}
	if got := r.Pixel(9, 0); got[0] != 0 {
		t.Errorf("Expected excluded feature left at background, got %v", got)
	}
}

func TestRasterizeRejectsExtraBurnValues(t *testing.T) {
	kit := NewNative(nil)
	_, err := kit.Rasterize(context.Background(), vector.New("x", vector.CRSLambert93), RasterizeRequest{
		Frame:      frame(),
		Background: []uint8{255},
		Burn:       []uint8{0, 0, 0},
	})
	if !internal.HasCode(err, internal.ErrorCodeToolkit) {
		t.Errorf("Expected %s error, got %v", internal.ErrorCodeToolkit, err)
	}
}

func TestConvertAndClip(t *testing.T) {
	kit := NewNative(nil)

	src := vector.New("BATIMENT", vector.CRSWGS84)
	src.Features = []*geojson.Feature{geojson.NewFeature(orb.Point{3, 46.5})}
	path := filepath.Join(t.TempDir(), "BATIMENT.geojson")
	if _, err := src.Save(path, &output.WriterConfig{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	converted, err := kit.Convert(context.Background(), path, "BATIMENT", vector.CRSWGS84, vector.CRSLambert93)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if converted.CRS != vector.CRSLambert93 {
		t.Errorf("Expected CRS %s, got %s", vector.CRSLambert93, converted.CRS)
	}

	inside := geom.BoundingBox{XMin: 695000, YMin: 6595000, XMax: 705000, YMax: 6605000}
	clipped, err := kit.Clip(context.Background(), converted, inside)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if clipped.Len() != 1 {
		t.Errorf("Expected 1 feature inside, got %d", clipped.Len())
	}

	outside := geom.BoundingBox{XMin: 0, YMin: 0, XMax: 10, YMax: 10}
	clipped, _ = kit.Clip(context.Background(), converted, outside)
	if clipped.Len() != 0 {
		t.Errorf("Expected 0 features outside, got %d", clipped.Len())
	}
}

func TestConvertMissingFile(t *testing.T) {
	kit := NewNative(nil)
	_, err := kit.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.geojson"), "missing", vector.CRSLambert93, vector.CRSLambert93)
	if !internal.HasCode(err, internal.ErrorCodeToolkit) {
		t.Errorf("Expected %s error, got %v", internal.ErrorCodeToolkit, err)
	}
}

func TestCanceledContext(t *testing.T) {
	kit := NewNative(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := kit.CreateRaster(ctx, frame(), 0); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestRasterizeAllocatesThroughCreateRaster(t *testing.T) {
	kit := NewNative(nil)
	d := vector.New("empty", vector.CRSLambert93)

	r, err := kit.Rasterize(context.Background(), d, RasterizeRequest{Frame: frame(), Background: []uint8{7, 8, 9}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if r.BandCount() != 3 || r.Pixel(0, 0)[2] != 9 {
		t.Errorf("Expected 3 background bands, got %v", r.Pixel(0, 0))
	}

	_, err = kit.Rasterize(context.Background(), d, RasterizeRequest{Background: []uint8{0}})
	if !internal.HasCode(err, internal.ErrorCodeToolkit) {
		t.Errorf("Expected %s error for an empty frame, got %v", internal.ErrorCodeToolkit, err)
	}
}
