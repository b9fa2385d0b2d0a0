// internal/region/export.go - Region GeoJSON export
package region

import (
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/mapforge/internal/vector"
)

// Export returns one region as a FeatureCollection carrying its code, name
// and neighbours, with a crs member naming crs
func (g *Graph) Export(code, crs string) (*geojson.FeatureCollection, error) {
	r, err := g.Region(code)
	if err != nil {
		return nil, err
	}

	f := geojson.NewFeature(r.Extent)
	f.Properties["code"] = r.Code
	f.Properties["name"] = r.Name
	neighbors := append([]string{}, r.Neighbors...)
	f.Properties["neighbors"] = neighbors

	d := vector.New(r.Code, crs)
	d.Features = []*geojson.Feature{f}
	return d.FeatureCollection(), nil
}

// Dataset returns the region extent as a single-feature dataset, used as
// the regional boundary layer
func (g *Graph) Dataset(code, name, crs string) (*vector.Dataset, error) {
	fc, err := g.Export(code, crs)
	if err != nil {
		return nil, err
	}
	d := vector.New(name, crs)
	d.Features = fc.Features
	return d, nil
}
