// internal/stage/stager.go - Per-region layer preparation
package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/config"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/internal/region"
	"github.com/valpere/mapforge/internal/toolkit"
	"github.com/valpere/mapforge/internal/vector"
	"github.com/valpere/mapforge/pkg/geom"
)

// BoundaryLayer names the regional extent dataset
const BoundaryLayer = "BOUNDARY"

// Layers holds the datasets staged for one region, or the union of several
// regions. A nil dataset means the layer had no source.
type Layers struct {
	Boundary    *vector.Dataset
	Vegetation  *vector.Dataset
	Parcels     *vector.Dataset
	Topographic map[string]*vector.Dataset
	// Files lists the staged dataset files written to the workspace
	Files []string
}

// NewLayers creates an empty layer set
func NewLayers() *Layers {
	return &Layers{Topographic: make(map[string]*vector.Dataset)}
}

// Stager converts and clips one region's source datasets to the project
// bounding box
type Stager struct {
	cfg       *config.Config
	kit       toolkit.Toolkit
	workspace *Workspace
	logger    *zap.Logger
}

// NewStager creates a stager writing into workspace
func NewStager(cfg *config.Config, kit toolkit.Toolkit, workspace *Workspace, logger *zap.Logger) *Stager {
	return &Stager{cfg: cfg, kit: kit, workspace: workspace, logger: logging.OrNop(logger)}
}

// Stage prepares every configured layer of r clipped to box. A layer with
// no source file is left nil; a source that cannot be read is an error
// naming the layer.
func (s *Stager) Stage(ctx context.Context, graph *region.Graph, r *region.Region, box geom.BoundingBox) (*Layers, error) {
	layers := NewLayers()

	boundary, err := graph.Dataset(r.Code, BoundaryLayer, s.cfg.Project.CRS)
	if err != nil {
		return nil, err
	}
	if layers.Boundary, err = s.finish(ctx, r.Code, boundary, box, layers); err != nil {
		return nil, err
	}

	if layers.Vegetation, err = s.stageLayer(ctx, r.Code, s.cfg.Layers.Vegetation, box, layers); err != nil {
		return nil, err
	}
	if layers.Parcels, err = s.stageLayer(ctx, r.Code, s.cfg.Layers.Parcels, box, layers); err != nil {
		return nil, err
	}
	for _, name := range s.cfg.Layers.Topographic {
		d, err := s.stageLayer(ctx, r.Code, name, box, layers)
		if err != nil {
			return nil, err
		}
		if d != nil {
			layers.Topographic[name] = d
		}
	}

	s.logger.Info("staged region",
		zap.String("region", r.Code),
		zap.Int("files", len(layers.Files)),
		zap.Int("topographic", len(layers.Topographic)))
	return layers, nil
}

func (s *Stager) stageLayer(ctx context.Context, code, name string, box geom.BoundingBox, layers *Layers) (*vector.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok, err := FindLayer(filepath.Join(s.cfg.Sources.Dir, code), name)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to search layer %s for region %s", name, code), err)
	}
	if !ok {
		s.logger.Warn("layer source not found",
			zap.String("region", code),
			zap.String("layer", name))
		return nil, nil
	}

	d, err := s.kit.Convert(ctx, path, name, s.cfg.Sources.CRS, s.cfg.Project.CRS)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeToolkit,
			fmt.Sprintf("failed to read layer %s for region %s", name, code), err)
	}

	return s.finish(ctx, code, d, box, layers)
}

// finish clips d and writes it to the workspace
func (s *Stager) finish(ctx context.Context, code string, d *vector.Dataset, box geom.BoundingBox, layers *Layers) (*vector.Dataset, error) {
	clipped, err := s.kit.Clip(ctx, d, box)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeToolkit,
			fmt.Sprintf("failed to clip layer %s for region %s", d.Name, code), err)
	}

	wc := &output.WriterConfig{
		Format:      output.FormatGeoJSON,
		Pretty:      s.cfg.Output.Pretty,
		Compression: s.cfg.Output.Compression,
	}
	written, err := clipped.Save(s.workspace.Path(fmt.Sprintf("%s_%s.geojson", code, d.Name)), wc)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to stage layer %s for region %s", d.Name, code), err)
	}
	layers.Files = append(layers.Files, written)

	s.logger.Debug("staged layer",
		zap.String("region", code),
		zap.String("layer", d.Name),
		zap.Int("features", clipped.Len()),
		zap.String("path", written))
	return clipped, nil
}

// Merge unions same-named layers of several regions. A single set is
// returned unchanged.
func Merge(sets ...*Layers) (*Layers, error) {
	if len(sets) == 1 {
		return sets[0], nil
	}

	merged := NewLayers()
	var boundary, vegetation, parcels []*vector.Dataset
	topographic := make(map[string][]*vector.Dataset)
	var order []string

	for _, set := range sets {
		boundary = append(boundary, set.Boundary)
		vegetation = append(vegetation, set.Vegetation)
		parcels = append(parcels, set.Parcels)
		for name, d := range set.Topographic {
			if _, seen := topographic[name]; !seen {
				order = append(order, name)
			}
			topographic[name] = append(topographic[name], d)
		}
		merged.Files = append(merged.Files, set.Files...)
	}

	var err error
	if merged.Boundary, err = mergeNamed(BoundaryLayer, boundary); err != nil {
		return nil, err
	}
	if merged.Vegetation, err = mergeNamed("vegetation", vegetation); err != nil {
		return nil, err
	}
	if merged.Parcels, err = mergeNamed("parcels", parcels); err != nil {
		return nil, err
	}
	for _, name := range order {
		d, err := mergeNamed(name, topographic[name])
		if err != nil {
			return nil, err
		}
		merged.Topographic[name] = d
	}
	return merged, nil
}

// mergeNamed keeps nil when no region supplied the layer
func mergeNamed(fallback string, sets []*vector.Dataset) (*vector.Dataset, error) {
	name := fallback
	present := 0
	for _, d := range sets {
		if d != nil {
			present++
			name = d.Name
		}
	}
	if present == 0 {
		return nil, nil
	}

	d, err := vector.Merge(name, sets...)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, fmt.Sprintf("failed to merge layer %s", name), err)
	}
	return d, nil
}
