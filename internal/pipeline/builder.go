// internal/pipeline/builder.go - Project build pipeline
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/composite"
	"github.com/valpere/mapforge/internal/config"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/region"
	"github.com/valpere/mapforge/internal/slice"
	"github.com/valpere/mapforge/internal/stage"
	"github.com/valpere/mapforge/internal/toolkit"
	"github.com/valpere/mapforge/internal/vector"
	"github.com/valpere/mapforge/pkg/geom"
)

// Request describes one project build
type Request struct {
	Name string
	Box  geom.BoundingBox
	// Photo supplies the photographic render; nil renders the canvas
	Photo PhotoSource
	// Overwrite replaces an existing project of the same name
	Overwrite bool
	// Slice cuts both renders into tiles once they are written
	Slice bool
}

// Project is the outcome of a build
type Project struct {
	Layout
	RunID   string
	Box     geom.BoundingBox
	Regions []string
	Results []composite.Result
	Tiles   []slice.Tile
	Stats   internal.BuildStats
}

// Builder runs project builds. Builds are sequential; the configuration is
// read-locked for the duration of each one.
type Builder struct {
	holder   *config.Holder
	kit      toolkit.Toolkit
	store    *region.Store
	reporter internal.Reporter
	logger   *zap.Logger
}

// NewBuilder creates a builder. A nil reporter discards progress.
func NewBuilder(holder *config.Holder, kit toolkit.Toolkit, store *region.Store, reporter internal.Reporter, logger *zap.Logger) *Builder {
	if reporter == nil {
		reporter = internal.NopReporter{}
	}
	return &Builder{
		holder:   holder,
		kit:      kit,
		store:    store,
		reporter: reporter,
		logger:   logging.OrNop(logger),
	}
}

// Build creates the project canvas for req.Box, composites every staged
// layer of the intersecting regions onto it and writes the renders
func (b *Builder) Build(ctx context.Context, req Request) (*Project, error) {
	var project *Project
	err := b.holder.Read(func(cfg *config.Config) error {
		var err error
		project, err = b.build(ctx, cfg, req)
		return err
	})
	return project, err
}

func (b *Builder) build(ctx context.Context, cfg *config.Config, req Request) (*Project, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := req.Box.Validate(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeGeometry, "invalid project bounding box", err)
	}

	project := &Project{
		Layout: NewLayout(cfg.Project.ProjectsDir, req.Name),
		Box:    req.Box,
		Stats:  internal.BuildStats{StartTime: time.Now()},
	}
	logger := b.logger.With(zap.String("project", req.Name))

	b.reporter.Report("resolving regions")
	graph, err := b.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := graph.Intersecting(req.Box)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, internal.NewError(internal.ErrorCodeNotFound,
			fmt.Sprintf("no region intersects %s", req.Box), nil)
	}
	for _, r := range regions {
		project.Regions = append(project.Regions, r.Code)
	}
	project.Stats.Regions = len(regions)
	logger.Info("resolved regions", zap.Strings("regions", project.Regions))

	b.reporter.Report("initializing project")
	frame, err := raster.CanvasFrame(req.Box, cfg.Project.Resolution, cfg.Project.SliceFactor, cfg.Project.CRS)
	if err != nil {
		return nil, err
	}
	canvas, err := b.kit.CreateRaster(ctx, frame, raster.CanvasFill()...)
	if err != nil {
		return nil, err
	}
	if err := b.prepareDir(project.Layout, req.Overwrite); err != nil {
		return nil, err
	}
	// the project directory only survives once both renders are written
	exported := false
	defer func() {
		if exported {
			return
		}
		if err := os.RemoveAll(project.Dir); err != nil {
			logger.Warn("failed to remove incomplete project", zap.String("dir", project.Dir), zap.Error(err))
		}
	}()

	workspace, err := stage.NewWorkspace(cfg.Project.WorkDir)
	if err != nil {
		return nil, err
	}
	project.RunID = workspace.ID
	defer func() {
		if err := workspace.Remove(); err != nil {
			logger.Warn("failed to remove workspace", zap.String("dir", workspace.Dir), zap.Error(err))
		}
	}()
	logger = logger.With(zap.String("run_id", workspace.ID))

	stager := stage.NewStager(cfg, b.kit, workspace, logger)
	var sets []*stage.Layers
	var staged []string
	for i, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.reporter.Report(fmt.Sprintf("staging region %s (%d/%d)", r.Code, i+1, len(regions)))

		layers, err := stager.Stage(ctx, graph, r, req.Box)
		if err != nil {
			return nil, err
		}
		staged = append(staged, layers.Files...)
		sets = append(sets, layers)

		if err := workspace.CleanExcept(staged); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.reporter.Report("merging layers")
	merged, err := stage.Merge(sets...)
	if err != nil {
		return nil, err
	}
	if err := b.saveResources(cfg, project.Layout, merged); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.reporter.Report("compositing layers")
	layers := compositeLayers(cfg, merged)
	project.Stats.Layers = len(layers)

	engine := composite.NewEngine(b.kit, canvas, logger)
	project.Results, err = engine.Composite(ctx, layers)
	if err != nil {
		return nil, err
	}

	b.reporter.Report("exporting images")
	if err := b.export(ctx, cfg, project.Layout, canvas, req.Photo); err != nil {
		return nil, err
	}
	exported = true

	if req.Slice {
		b.reporter.Report("slicing images")
		tiles, err := b.slice(cfg, project.Layout, canvas.Frame.Bounds())
		project.Tiles = tiles
		project.Stats.Tiles = len(tiles)
		if err != nil {
			project.Stats.TileErrors = slice.Failures(err)
			return project, err
		}
	}

	project.Stats.EndTime = time.Now()
	b.reporter.Report("done")
	logger.Info("project built",
		zap.String("dir", project.Dir),
		zap.Int("regions", project.Stats.Regions),
		zap.Int("layers", project.Stats.Layers),
		zap.Int("tiles", project.Stats.Tiles),
		zap.Duration("duration", project.Stats.Duration()))
	return project, nil
}

// Slice cuts an existing project's renders into tiles
func (b *Builder) Slice(ctx context.Context, name string) ([]slice.Tile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var tiles []slice.Tile
	err := b.holder.Read(func(cfg *config.Config) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		box, err := ProjectBounds(cfg.Project.ProjectsDir, name, cfg.Project.CRS)
		if err != nil {
			return err
		}
		tiles, err = b.slice(cfg, NewLayout(cfg.Project.ProjectsDir, name), box)
		return err
	})
	return tiles, err
}

func (b *Builder) slice(cfg *config.Config, l Layout, box geom.BoundingBox) ([]slice.Tile, error) {
	thematic, err := slice.LoadImage(l.Thematic())
	if err != nil {
		return nil, err
	}
	photo, err := slice.LoadImage(l.Photo())
	if err != nil {
		return nil, err
	}

	slicer := slice.NewSlicer(cfg.Project.SliceFactor, cfg.Project.Resolution, cfg.Output.JPEGQuality, b.logger)
	return slicer.Slice(l.Slices(), thematic, photo, box.LowerLeft())
}

func (b *Builder) prepareDir(l Layout, overwrite bool) error {
	if _, err := os.Stat(l.Dir); err == nil {
		if !overwrite {
			return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("project %s already exists", l.Name), nil)
		}
		if err := os.RemoveAll(l.Dir); err != nil {
			return internal.NewError(internal.ErrorCodeFileSystem, "failed to remove existing project", err)
		}
	}

	for _, dir := range []string{l.Dir, l.Resources(), l.Slices()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to create %s", dir), err)
		}
	}
	return nil
}

// saveResources keeps the merged layers with the project
func (b *Builder) saveResources(cfg *config.Config, l Layout, layers *stage.Layers) error {
	wc := &output.WriterConfig{
		Format:      output.FormatGeoJSON,
		Pretty:      cfg.Output.Pretty,
		Compression: cfg.Output.Compression,
	}

	save := func(file string, d *vector.Dataset) error {
		if d == nil {
			return nil
		}
		if _, err := d.Save(filepath.Join(l.Resources(), file+".geojson"), wc); err != nil {
			return internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to save layer %s", d.Name), err)
		}
		return nil
	}

	if err := save(l.Name, layers.Boundary); err != nil {
		return err
	}
	if err := save(cfg.Layers.Vegetation, layers.Vegetation); err != nil {
		return err
	}
	if err := save(cfg.Layers.Parcels, layers.Parcels); err != nil {
		return err
	}
	for _, name := range cfg.Layers.Topographic {
		if err := save(name, layers.Topographic[name]); err != nil {
			return err
		}
	}
	return nil
}

// compositeLayers lists the layers present in paint order
func compositeLayers(cfg *config.Config, layers *stage.Layers) []composite.Layer {
	var result []composite.Layer
	add := func(name string, kind composite.Kind, d *vector.Dataset) {
		if d != nil {
			result = append(result, composite.NewLayer(name, kind, d))
		}
	}

	add(stage.BoundaryLayer, composite.KindBoundary, layers.Boundary)
	add(cfg.Layers.Vegetation, composite.KindVegetation, layers.Vegetation)
	add(cfg.Layers.Parcels, composite.KindParcels, layers.Parcels)
	for _, name := range cfg.Layers.Topographic {
		add(name, composite.KindTopographic, layers.Topographic[name])
	}
	return result
}

func (b *Builder) export(ctx context.Context, cfg *config.Config, l Layout, canvas *raster.Raster, source PhotoSource) error {
	if err := canvas.SaveTIFF(l.Raster()); err != nil {
		return err
	}
	if err := canvas.SaveJPEG(l.Thematic(), cfg.Output.JPEGQuality); err != nil {
		return err
	}

	if source == nil {
		source = CanvasSource{Canvas: canvas}
	}
	photo, err := source.Photo(ctx, canvas.Frame)
	if err != nil {
		return err
	}
	return raster.WriteJPEG(l.Photo(), photo, cfg.Output.JPEGQuality)
}
