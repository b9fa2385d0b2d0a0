// internal/composite/engine.go - Layer compositing onto the project canvas
package composite

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/internal/toolkit"
	"github.com/valpere/mapforge/internal/vector"
)

// Layer is one thematic dataset to paint onto the canvas
type Layer struct {
	Name    string
	Kind    Kind
	Policy  BurnPolicy
	Dataset *vector.Dataset
}

// NewLayer creates a layer using the kind's default policy
func NewLayer(name string, kind Kind, d *vector.Dataset) Layer {
	return Layer{Name: name, Kind: kind, Policy: kind.DefaultPolicy(), Dataset: d}
}

// Result summarises one layer overlay
type Result struct {
	Layer   string
	Kind    Kind
	Skipped bool
	Masked  int
}

// Engine paints thematic layers onto a canvas. It owns the canvas for the
// duration of a build and is not safe for concurrent use.
type Engine struct {
	kit    toolkit.Toolkit
	canvas *raster.Raster
	logger *zap.Logger
}

// NewEngine creates an engine painting onto canvas
func NewEngine(kit toolkit.Toolkit, canvas *raster.Raster, logger *zap.Logger) *Engine {
	return &Engine{kit: kit, canvas: canvas, logger: logging.OrNop(logger)}
}

// Canvas returns the canvas being painted
func (e *Engine) Canvas() *raster.Raster {
	return e.canvas
}

// Order sorts layers into paint priority: boundary, vegetation, parcels,
// then topographic sub-layers. Layers of one kind keep their given order.
func Order(layers []Layer) []Layer {
	ordered := append([]Layer(nil), layers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind < ordered[j].Kind
	})
	return ordered
}

// Composite paints layers in priority order. ctx is checked between layers.
func (e *Engine) Composite(ctx context.Context, layers []Layer) ([]Result, error) {
	var results []Result
	for _, layer := range Order(layers) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.AddLayer(ctx, layer)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// AddLayer rasterizes one layer and overlays it on the canvas. A layer with
// no features is skipped.
func (e *Engine) AddLayer(ctx context.Context, layer Layer) (Result, error) {
	res := Result{Layer: layer.Name, Kind: layer.Kind}

	if layer.Dataset == nil {
		return res, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("layer %s has no dataset", layer.Name), nil)
	}
	if err := layer.Policy.Validate(); err != nil {
		return res, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("layer %s", layer.Name), err)
	}
	if layer.Dataset.Empty() {
		e.logger.Info("skipping empty layer", zap.String("layer", layer.Name), zap.Stringer("kind", layer.Kind))
		res.Skipped = true
		return res, nil
	}

	mask := layer.Kind.Mask()

	subs, err := e.rasterizeClasses(ctx, layer, mask.Background())
	if err != nil {
		return res, err
	}

	bands, err := e.classifyMerge(subs, mask.Background())
	if err != nil {
		return res, internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("layer %s", layer.Name), err)
	}

	selected := BuildMask(bands, mask)

	res.Masked, err = e.overlay(bands, selected, layer.Kind.Overlay())
	if err != nil {
		return res, internal.NewError(internal.ErrorCodeRaster, fmt.Sprintf("layer %s", layer.Name), err)
	}

	e.logger.Info("layer composited",
		zap.String("layer", layer.Name),
		zap.Stringer("kind", layer.Kind),
		zap.Stringer("mask", mask),
		zap.Int("features", layer.Dataset.Len()),
		zap.Int("classes", len(subs)),
		zap.Int("pixels", res.Masked))
	return res, nil
}

// rasterizeClasses burns each rule's features into its own raster. Rules
// claiming no feature produce no raster.
func (e *Engine) rasterizeClasses(ctx context.Context, layer Layer, background uint8) ([]*raster.Raster, error) {
	policy := layer.Policy

	claimed := make(map[*geojson.Feature]int, layer.Dataset.Len())
	counts := make([]int, len(policy.Rules))
	for _, f := range layer.Dataset.Features {
		idx := policy.Classify(f)
		claimed[f] = idx
		if idx >= 0 {
			counts[idx]++
		}
	}

	// linear topographic layers burn every touched pixel
	allTouched := layer.Kind == KindTopographic && layer.Dataset.Linear()

	var subs []*raster.Raster
	for i, rule := range policy.Rules {
		if counts[i] == 0 {
			continue
		}

		req := toolkit.RasterizeRequest{
			Frame:      e.canvas.Frame,
			Background: []uint8{background, background, background},
			Burn:       []uint8{rule.Color[0], rule.Color[1], rule.Color[2]},
			Filter:     func(f *geojson.Feature) bool { return claimed[f] == i },
			AllTouched: allTouched,
		}

		sub, err := e.kit.Rasterize(ctx, layer.Dataset, req)
		if err != nil {
			return nil, fmt.Errorf("layer %s, class %s: %w", layer.Name, rule.Name, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// classifyMerge picks, per pixel and per band, the first value that differs
// from the background across subs in rule order
func (e *Engine) classifyMerge(subs []*raster.Raster, background uint8) ([][]uint8, error) {
	merged := make([][]uint8, raster.ColorBands)

	for b := 1; b <= raster.ColorBands; b++ {
		if len(subs) == 0 {
			band := make([]uint8, e.canvas.Frame.Pixels())
			for i := range band {
				band[i] = background
			}
			merged[b-1] = band
			continue
		}

		band, err := e.kit.ReadBand(subs[0], b)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs[1:] {
			next, err := e.kit.ReadBand(sub, b)
			if err != nil {
				return nil, err
			}
			for i, v := range band {
				if v == background {
					band[i] = next[i]
				}
			}
		}
		merged[b-1] = band
	}
	return merged, nil
}

// BuildMask marks pixels where any colour band passes the predicate
func BuildMask(bands [][]uint8, pred MaskPredicate) []bool {
	if len(bands) == 0 {
		return nil
	}
	mask := make([]bool, len(bands[0]))
	for _, band := range bands {
		for i, v := range band {
			if !mask[i] && pred.Test(v) {
				mask[i] = true
			}
		}
	}
	return mask
}

// overlay writes masked pixels into canvas bands 1-3 and returns how many
// pixels were masked. Band 4 is never written.
func (e *Engine) overlay(bands [][]uint8, mask []bool, mode OverlayMode) (int, error) {
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}

	for b := 1; b <= raster.ColorBands; b++ {
		canvasBand, err := e.kit.ReadBand(e.canvas, b)
		if err != nil {
			return 0, err
		}

		src := bands[b-1]
		for i, m := range mask {
			if !m {
				continue
			}
			if mode == OverlayBlank {
				canvasBand[i] = 0
			} else {
				canvasBand[i] = src[i]
			}
		}

		if err := e.kit.WriteBand(e.canvas, b, canvasBand); err != nil {
			return 0, err
		}
	}
	return count, nil
}
