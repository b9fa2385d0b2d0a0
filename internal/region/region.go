// internal/region/region.go - Administrative regions and their adjacency graph
package region

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/pkg/geom"
)

// Region is an administrative partition with its extent and neighbours
type Region struct {
	Code      string
	Name      string
	Extent    orb.Geometry
	Neighbors []string
}

// Intersects reports whether the region extent shares any point with box
func (r *Region) Intersects(box geom.BoundingBox) (bool, error) {
	if !r.Extent.Bound().Intersects(box.Bound()) {
		return false, nil
	}
	return geom.Intersects(r.Extent, box.Polygon())
}

// Contains reports whether box lies entirely within the region extent
func (r *Region) Contains(box geom.BoundingBox) (bool, error) {
	return geom.Contains(r.Extent, box.Polygon())
}

// HasNeighbor reports whether code is listed as a neighbour
func (r *Region) HasNeighbor(code string) bool {
	for _, n := range r.Neighbors {
		if n == code {
			return true
		}
	}
	return false
}

// addNeighbor inserts code once, keeping the list sorted
func (r *Region) addNeighbor(code string) {
	i := sort.SearchStrings(r.Neighbors, code)
	if i < len(r.Neighbors) && r.Neighbors[i] == code {
		return
	}
	r.Neighbors = append(r.Neighbors, "")
	copy(r.Neighbors[i+1:], r.Neighbors[i:])
	r.Neighbors[i] = code
}

// Graph maps region codes to regions. It is read-only once built or loaded.
type Graph struct {
	regions map[string]*Region
}

// NewGraph indexes regions by code without checking integrity
func NewGraph(regions []*Region) (*Graph, error) {
	g := &Graph{regions: make(map[string]*Region, len(regions))}
	for _, r := range regions {
		if r.Code == "" {
			return nil, internal.NewError(internal.ErrorCodeValidation, "region without code", nil)
		}
		if _, dup := g.regions[r.Code]; dup {
			return nil, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("duplicate region code %q", r.Code), nil)
		}
		g.regions[r.Code] = r
	}
	return g, nil
}

// Len returns the number of regions
func (g *Graph) Len() int {
	return len(g.regions)
}

// Codes returns every region code in ascending order
func (g *Graph) Codes() []string {
	codes := make([]string, 0, len(g.regions))
	for code := range g.regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Regions returns every region ordered by code
func (g *Graph) Regions() []*Region {
	result := make([]*Region, 0, len(g.regions))
	for _, code := range g.Codes() {
		result = append(result, g.regions[code])
	}
	return result
}

// Region looks up a region by code
func (g *Graph) Region(code string) (*Region, error) {
	r, ok := g.regions[code]
	if !ok {
		return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("region code %q not found in the graph", code), nil)
	}
	return r, nil
}

// Neighbors resolves the neighbours of code. An unknown code is NOT_FOUND;
// a neighbour missing from the graph is a GRAPH_INTEGRITY error.
func (g *Graph) Neighbors(code string) ([]*Region, error) {
	r, err := g.Region(code)
	if err != nil {
		return nil, err
	}

	result := make([]*Region, 0, len(r.Neighbors))
	for _, n := range r.Neighbors {
		neighbor, ok := g.regions[n]
		if !ok {
			return nil, internal.NewError(internal.ErrorCodeGraphIntegrity,
				fmt.Sprintf("region %q lists unknown neighbour %q", code, n), nil)
		}
		result = append(result, neighbor)
	}
	return result, nil
}

// Intersecting returns the regions whose extent intersects box, ordered by code
func (g *Graph) Intersecting(box geom.BoundingBox) ([]*Region, error) {
	if err := box.Validate(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, "invalid query box", err)
	}

	var result []*Region
	for _, r := range g.Regions() {
		hit, err := r.Intersects(box)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeGeometry,
				fmt.Sprintf("intersection test failed for region %q", r.Code), err)
		}
		if hit {
			result = append(result, r)
		}
	}
	return result, nil
}

// Validate checks that every neighbour exists and that adjacency is symmetric
func (g *Graph) Validate() error {
	for _, code := range g.Codes() {
		r := g.regions[code]
		for _, n := range r.Neighbors {
			other, ok := g.regions[n]
			if !ok {
				return internal.NewError(internal.ErrorCodeGraphIntegrity,
					fmt.Sprintf("region %q lists unknown neighbour %q", code, n), nil)
			}
			if !other.HasNeighbor(code) {
				return internal.NewError(internal.ErrorCodeGraphIntegrity,
					fmt.Sprintf("adjacency %q -> %q is not symmetric", code, n), nil)
			}
		}
	}
	return nil
}
