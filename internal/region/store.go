// internal/region/store.go - Region graph cache artifact
package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/config"
	"github.com/valpere/mapforge/internal/logging"
	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/internal/toolkit"
	"github.com/valpere/mapforge/pkg/geom"
)

// CacheEntry is the persisted form of a region
type CacheEntry struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Extent    string   `json:"extent"`
	Neighbors []string `json:"neighbors"`
}

// Store loads the region graph from its cache artifact, rebuilding it from
// the source dataset only when the artifact is absent.
type Store struct {
	cfg    config.RegionsConfig
	crs    string
	kit    toolkit.Toolkit
	logger *zap.Logger
	group  singleflight.Group
}

// NewStore creates a store; crs is the deployment CRS the graph is kept in
func NewStore(cfg config.RegionsConfig, crs string, kit toolkit.Toolkit, logger *zap.Logger) *Store {
	return &Store{cfg: cfg, crs: crs, kit: kit, logger: logging.OrNop(logger)}
}

// Load returns the graph. Concurrent callers share a single load.
func (s *Store) Load(ctx context.Context) (*Graph, error) {
	v, err, _ := s.group.Do("graph", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Graph), nil
}

func (s *Store) load(ctx context.Context) (*Graph, error) {
	data, err := output.ReadFile(s.cfg.GraphCache)
	switch {
	case err == nil:
		g, err := Decode(data)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeGraphIntegrity,
				fmt.Sprintf("corrupt region graph cache %s", s.cfg.GraphCache), err)
		}
		s.logger.Debug("loaded region graph from cache",
			zap.String("path", s.cfg.GraphCache), zap.Int("regions", g.Len()))
		return g, nil
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("region graph cache absent, rebuilding", zap.String("path", s.cfg.GraphCache))
		return s.Rebuild(ctx)
	default:
		return nil, internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to read region graph cache %s", s.cfg.GraphCache), err)
	}
}

// Rebuild builds the graph from the source dataset and persists it
func (s *Store) Rebuild(ctx context.Context) (*Graph, error) {
	if _, err := os.Stat(s.cfg.Source); err != nil {
		return nil, internal.NewError(internal.ErrorCodeNotFound,
			fmt.Sprintf("region source dataset %s not found", s.cfg.Source), err)
	}

	d, err := s.kit.Convert(ctx, s.cfg.Source, "regions", s.cfg.SourceCRS, s.crs)
	if err != nil {
		return nil, err
	}

	records, err := s.records(d.Features)
	if err != nil {
		return nil, err
	}

	g, err := Build(records, BuildOptions{Prefilter: s.cfg.Prefilter, Logger: s.logger})
	if err != nil {
		return nil, err
	}

	if err := s.Save(g); err != nil {
		return nil, err
	}
	return g, nil
}

// records extracts regions from source features. Features without a code
// or geometry are skipped; a missing name falls back to the code.
func (s *Store) records(features []*geojson.Feature) ([]Record, error) {
	var simplifier orb.Simplifier
	if s.cfg.SimplifyTolerance > 0 {
		simplifier = simplify.DouglasPeucker(s.cfg.SimplifyTolerance)
	}

	records := make([]Record, 0, len(features))
	for i, f := range features {
		code := propertyString(f.Properties, s.cfg.CodeProperty)
		if code == "" || f.Geometry == nil {
			s.logger.Warn("skipping region feature without code or geometry", zap.Int("index", i))
			continue
		}

		name := propertyString(f.Properties, s.cfg.NameProperty)
		if name == "" {
			name = code
		}

		extent := f.Geometry
		if simplifier != nil {
			extent = simplifier.Simplify(orb.Clone(extent))
		}

		records = append(records, Record{Code: code, Name: name, Extent: extent})
	}
	return records, nil
}

// Save writes the graph cache artifact
func (s *Store) Save(g *Graph) error {
	wc := &output.WriterConfig{Format: output.FormatJSON, Pretty: true}
	if _, err := output.WriteFile(wc, s.cfg.GraphCache, Encode(g)); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("failed to write region graph cache %s", s.cfg.GraphCache), err)
	}
	s.logger.Info("saved region graph", zap.String("path", s.cfg.GraphCache), zap.Int("regions", g.Len()))
	return nil
}

// Encode converts a graph into its cache form, keyed by code
func Encode(g *Graph) map[string]CacheEntry {
	entries := make(map[string]CacheEntry, g.Len())
	for code, r := range g.regions {
		neighbors := r.Neighbors
		if neighbors == nil {
			neighbors = []string{}
		}
		entries[code] = CacheEntry{
			Code:      r.Code,
			Name:      r.Name,
			Extent:    geom.MarshalWKT(r.Extent),
			Neighbors: neighbors,
		}
	}
	return entries
}

// Decode parses a cache artifact and checks its integrity
func Decode(data []byte) (*Graph, error) {
	var entries map[string]CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid graph JSON: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("graph JSON is not an object")
	}

	regions := make([]*Region, 0, len(entries))
	for key, e := range entries {
		if e.Code == "" {
			e.Code = key
		}
		if e.Code != key {
			return nil, fmt.Errorf("entry %q carries code %q", key, e.Code)
		}

		extent, err := geom.ParseWKT(e.Extent)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeGeometry, fmt.Sprintf("region %q", key), err)
		}

		r := &Region{Code: e.Code, Name: e.Name, Extent: extent}
		for _, n := range e.Neighbors {
			r.addNeighbor(n)
		}
		regions = append(regions, r)
	}

	g, err := NewGraph(regions)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func propertyString(props geojson.Properties, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
