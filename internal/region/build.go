// internal/region/build.go - Adjacency graph construction
package region

import (
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/pkg/geom"
)

// Record is one region read from the source dataset
type Record struct {
	Code   string
	Name   string
	Extent orb.Geometry
}

// BuildOptions tunes graph construction
type BuildOptions struct {
	// Prefilter skips pairs whose bounds do not overlap
	Prefilter bool
	Logger    *zap.Logger
}

// Build evaluates every unordered pair of records and links the pair when
// their extents intersect, or failing that when they touch.
func Build(records []Record, opts BuildOptions) (*Graph, error) {
	logger := logging.OrNop(opts.Logger)

	regions := make([]*Region, 0, len(records))
	for _, rec := range records {
		if _, err := geom.Polygons(rec.Extent); err != nil {
			return nil, internal.NewError(internal.ErrorCodeGeometry,
				fmt.Sprintf("invalid extent for region %q", rec.Code), err)
		}
		regions = append(regions, &Region{Code: rec.Code, Name: rec.Name, Extent: rec.Extent})
	}

	g, err := NewGraph(regions)
	if err != nil {
		return nil, err
	}

	bounds := make([]orb.Bound, len(regions))
	for i, r := range regions {
		bounds[i] = r.Extent.Bound()
	}

	var evaluated, skipped, edges int
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if opts.Prefilter && !bounds[i].Intersects(bounds[j]) {
				skipped++
				continue
			}
			evaluated++

			adjacent, err := adjacent(regions[i], regions[j])
			if err != nil {
				return nil, err
			}
			if adjacent {
				regions[i].addNeighbor(regions[j].Code)
				regions[j].addNeighbor(regions[i].Code)
				edges++
			}
		}
	}

	logger.Info("built region graph",
		zap.Int("regions", len(regions)),
		zap.Int("pairs_evaluated", evaluated),
		zap.Int("pairs_skipped", skipped),
		zap.Int("edges", edges))
	return g, nil
}

func adjacent(a, b *Region) (bool, error) {
	hit, err := geom.Intersects(a.Extent, b.Extent)
	if err != nil {
		return false, internal.NewError(internal.ErrorCodeGeometry,
			fmt.Sprintf("intersects(%q, %q) failed", a.Code, b.Code), err)
	}
	if hit {
		return true, nil
	}

	touch, err := geom.Touches(a.Extent, b.Extent)
	if err != nil {
		return false, internal.NewError(internal.ErrorCodeGeometry,
			fmt.Sprintf("touches(%q, %q) failed", a.Code, b.Code), err)
	}
	return touch, nil
}
