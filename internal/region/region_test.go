// internal/region/region_test.go - Unit tests for the region adjacency graph
package region

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/pkg/geom"
)

func squareRecord(code string, xmin, ymin, size float64) Record {
	return Record{
		Code:   code,
		Name:   "Region " + code,
		Extent: geom.BoundingBox{XMin: xmin, YMin: ymin, XMax: xmin + size, YMax: ymin + size}.Polygon(),
	}
}

// gridRecords lays out n x n adjacent squares named "r<col><row>"
func gridRecords(n int, size float64) []Record {
	var records []Record
	for col := 0; col < n; col++ {
		for row := 0; row < n; row++ {
			records = append(records, squareRecord(fmt.Sprintf("r%d%d", col, row), float64(col)*size, float64(row)*size, size))
		}
	}
	return records
}

func codes(regions []*Region) []string {
	result := make([]string, 0, len(regions))
	for _, r := range regions {
		result = append(result, r.Code)
	}
	return result
}

func TestBuildSharedEdge(t *testing.T) {
	g, err := Build([]Record{
		squareRecord("A", 0, 0, 1000),
		squareRecord("B", 1000, 0, 1000),
	}, BuildOptions{Prefilter: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	a, err := g.Neighbors("A")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(a) != 1 || a[0].Code != "B" {
		t.Errorf("Expected neighbours of A to be [B], got %v", codes(a))
	}

	b, err := g.Neighbors("B")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(b) != 1 || b[0].Code != "A" {
		t.Errorf("Expected neighbours of B to be [A], got %v", codes(b))
	}
}

func TestBuildGridSymmetry(t *testing.T) {
	for _, prefilter := range []bool{true, false} {
		t.Run(fmt.Sprintf("prefilter=%v", prefilter), func(t *testing.T) {
			g, err := Build(gridRecords(3, 100), BuildOptions{Prefilter: prefilter})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			if err := g.Validate(); err != nil {
				t.Errorf("Expected valid graph, got %v", err)
			}

			for _, r := range g.Regions() {
				for _, n := range r.Neighbors {
					other, _ := g.Region(n)
					if !other.HasNeighbor(r.Code) {
						t.Errorf("Expected %s to list %s back", n, r.Code)
					}
				}
			}

			center, _ := g.Region("r11")
			if len(center.Neighbors) != 8 {
				t.Errorf("Expected centre to have 8 neighbours, got %v", center.Neighbors)
			}
			corner, _ := g.Region("r00")
			if len(corner.Neighbors) != 3 {
				t.Errorf("Expected corner to have 3 neighbours, got %v", corner.Neighbors)
			}
		})
	}
}

func TestBuildIsolatedRegion(t *testing.T) {
	g, err := Build([]Record{
		squareRecord("A", 0, 0, 10),
		squareRecord("Z", 1000, 1000, 10),
	}, BuildOptions{Prefilter: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	n, err := g.Neighbors("Z")
	if err != nil {
		t.Fatalf("Expected no error for known region, got %v", err)
	}
	if len(n) != 0 {
		t.Errorf("Expected no neighbours, got %v", codes(n))
	}
}

func TestBuildRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		code    string
	}{
		{
			name:    "duplicate code",
			records: []Record{squareRecord("A", 0, 0, 1), squareRecord("A", 5, 5, 1)},
			code:    internal.ErrorCodeValidation,
		},
		{
			name:    "line extent",
			records: []Record{{Code: "L", Extent: orb.LineString{{0, 0}, {1, 1}}}},
			code:    internal.ErrorCodeGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.records, BuildOptions{})
			if !internal.HasCode(err, tt.code) {
				t.Errorf("Expected %s error, got %v", tt.code, err)
			}
		})
	}
}

func TestNeighborsErrors(t *testing.T) {
	g, err := NewGraph([]*Region{
		{Code: "A", Extent: geom.BoundingBox{XMax: 1, YMax: 1}.Polygon(), Neighbors: []string{"GHOST"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := g.Neighbors("UNKNOWN"); !internal.HasCode(err, internal.ErrorCodeNotFound) {
		t.Errorf("Expected %s for unknown code, got %v", internal.ErrorCodeNotFound, err)
	}
	if _, err := g.Neighbors("A"); !internal.HasCode(err, internal.ErrorCodeGraphIntegrity) {
		t.Errorf("Expected %s for dangling neighbour, got %v", internal.ErrorCodeGraphIntegrity, err)
	}
	if err := g.Validate(); !internal.HasCode(err, internal.ErrorCodeGraphIntegrity) {
		t.Errorf("Expected %s from Validate, got %v", internal.ErrorCodeGraphIntegrity, err)
	}
}

func TestValidateAsymmetric(t *testing.T) {
	square := geom.BoundingBox{XMax: 1, YMax: 1}.Polygon()
	g, _ := NewGraph([]*Region{
		{Code: "A", Extent: square, Neighbors: []string{"B"}},
		{Code: "B", Extent: square},
	})

	if err := g.Validate(); !internal.HasCode(err, internal.ErrorCodeGraphIntegrity) {
		t.Errorf("Expected %s for one-way edge, got %v", internal.ErrorCodeGraphIntegrity, err)
	}
}

func TestIntersecting(t *testing.T) {
	g, err := Build([]Record{
		squareRecord("B", 10000, 0, 10000),
		squareRecord("A", 0, 0, 10000),
	}, BuildOptions{Prefilter: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name string
		box  geom.BoundingBox
		want []string
	}{
		{name: "outside", box: geom.BoundingBox{XMin: 50000, YMin: 50000, XMax: 55000, YMax: 55000}, want: nil},
		{name: "inside A", box: geom.BoundingBox{XMin: 1000, YMin: 1000, XMax: 6000, YMax: 6000}, want: []string{"A"}},
		{name: "straddling", box: geom.BoundingBox{XMin: 7500, YMin: 1000, XMax: 12500, YMax: 6000}, want: []string{"A", "B"}},
		{name: "covering both", box: geom.BoundingBox{XMin: -1, YMin: -1, XMax: 30000, YMax: 30000}, want: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Intersecting(tt.box)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			gotCodes := codes(got)
			if len(gotCodes) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, gotCodes)
			}
			for i := range tt.want {
				if gotCodes[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, gotCodes)
				}
			}
		})
	}
}

func TestRegionContains(t *testing.T) {
	r := &Region{Code: "A", Extent: geom.BoundingBox{XMax: 10000, YMax: 10000}.Polygon()}

	inside, err := r.Contains(geom.BoundingBox{XMin: 1000, YMin: 1000, XMax: 6000, YMax: 6000})
	if err != nil || !inside {
		t.Errorf("Expected box inside region, got %v (err %v)", inside, err)
	}

	straddling, _ := r.Contains(geom.BoundingBox{XMin: 7500, YMin: 1000, XMax: 12500, YMax: 6000})
	if straddling {
		t.Error("Expected straddling box not contained")
	}
}

func TestExport(t *testing.T) {
	g, _ := Build([]Record{
		squareRecord("A", 0, 0, 1000),
		squareRecord("B", 1000, 0, 1000),
	}, BuildOptions{})

	fc, err := g.Export("A", "EPSG:2154")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}
	props := fc.Features[0].Properties
	if props.MustString("code", "") != "A" || props.MustString("name", "") != "Region A" {
		t.Errorf("Expected code A and name 'Region A', got %v", props)
	}
	if n, ok := props["neighbors"].([]string); !ok || len(n) != 1 || n[0] != "B" {
		t.Errorf("Expected neighbors [B], got %v", props["neighbors"])
	}
	if _, ok := fc.ExtraMembers["crs"]; !ok {
		t.Error("Expected crs member")
	}

	if _, err := g.Export("Z", "EPSG:2154"); !internal.HasCode(err, internal.ErrorCodeNotFound) {
		t.Errorf("Expected %s, got %v", internal.ErrorCodeNotFound, err)
	}
}
