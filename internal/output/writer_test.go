// internal/output/writer_test.go - Unit tests for output writers
package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func sampleCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.Properties["code"] = "75"
	fc.Append(f)
	return fc
}

func TestWriteFileCompression(t *testing.T) {
	tests := []struct {
		name        string
		compression bool
		wantSuffix  string
	}{
		{name: "plain", compression: false, wantSuffix: "layer.geojson"},
		{name: "gzip", compression: true, wantSuffix: "layer.geojson.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "layer.geojson")
			config := &WriterConfig{Format: FormatGeoJSON, Compression: tt.compression}

			written, err := WriteFile(config, path, sampleCollection())
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !strings.HasSuffix(written, tt.wantSuffix) {
				t.Errorf("Expected path ending in %s, got %s", tt.wantSuffix, written)
			}

			data, err := ReadFile(written)
			if err != nil {
				t.Fatalf("Expected no error reading back, got %v", err)
			}

			fc, err := geojson.UnmarshalFeatureCollection(data)
			if err != nil {
				t.Fatalf("Expected valid GeoJSON, got %v", err)
			}
			if len(fc.Features) != 1 {
				t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
			}
			if fc.Features[0].Properties.MustString("code", "") != "75" {
				t.Errorf("Expected code 75, got %v", fc.Features[0].Properties["code"])
			}
		})
	}
}

func TestGeoJSONFormatterRejectsOtherValues(t *testing.T) {
	f := NewGeoJSONFormatter(false)
	if _, err := f.Format(map[string]string{"a": "b"}); err == nil {
		t.Error("Expected error formatting a map as GeoJSON")
	}
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewStreamWriter(FormatJSON, true, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := w.Write(map[string]int{"tiles": 4}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(buf.String(), "\"tiles\": 4") {
		t.Errorf("Expected indented JSON, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Expected trailing newline")
	}
}

func TestNewFormatterUnsupported(t *testing.T) {
	if _, err := NewFormatter(Format("custom"), false); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
