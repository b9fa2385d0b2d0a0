// internal/pipeline/projects.go - Project layout and discovery
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/valpere/mapforge/internal"
	"github.com/valpere/mapforge/internal/raster"
	"github.com/valpere/mapforge/pkg/geom"
)

// Project directory entries
const (
	ResourcesDir = "resources"
	SlicesDir    = "slices"
	cacheDir     = "cache"
)

// Layout names the files of one project
type Layout struct {
	Name string
	Dir  string
}

// NewLayout returns the layout of project name below projectsDir
func NewLayout(projectsDir, name string) Layout {
	return Layout{Name: name, Dir: filepath.Join(projectsDir, name)}
}

// Raster returns the canvas TIFF path
func (l Layout) Raster() string { return filepath.Join(l.Dir, l.Name+".tiff") }

// Thematic returns the thematic render path
func (l Layout) Thematic() string { return filepath.Join(l.Dir, l.Name+"_VEGET.jpeg") }

// Photo returns the photographic render path
func (l Layout) Photo() string { return filepath.Join(l.Dir, l.Name+"_ORTHO.jpeg") }

// Resources returns the directory of merged layer datasets
func (l Layout) Resources() string { return filepath.Join(l.Dir, ResourcesDir) }

// Slices returns the tile directory
func (l Layout) Slices() string { return filepath.Join(l.Dir, SlicesDir) }

// ValidateName rejects names that are empty or would escape the projects
// directory
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return internal.NewError(internal.ErrorCodeValidation, "project name is required", nil)
	case name == cacheDir, name == ".", name == "..":
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("project name %q is reserved", name), nil)
	case strings.ContainsAny(name, `/\`):
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("project name %q must not contain path separators", name), nil)
	}
	return nil
}

// ProjectInfo describes a previously built project
type ProjectInfo struct {
	Name    string `json:"name"`
	Dir     string `json:"dir"`
	Preview string `json:"preview"`
}

// ListProjects returns the projects found in projectsDir, sorted by name.
// The source cache directory is not a project.
func ListProjects(projectsDir string) ([]ProjectInfo, error) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to list projects", err)
	}

	var projects []ProjectInfo
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == cacheDir {
			continue
		}
		l := NewLayout(projectsDir, entry.Name())
		projects = append(projects, ProjectInfo{Name: l.Name, Dir: l.Dir, Preview: l.Photo()})
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// DeleteProject removes project name and everything it holds
func DeleteProject(projectsDir, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	l := NewLayout(projectsDir, name)
	info, err := os.Stat(l.Dir)
	if err != nil || !info.IsDir() {
		return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("project %s not found", name), err)
	}
	if err := os.RemoveAll(l.Dir); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to delete project %s", name), err)
	}
	return nil
}

// ClearCache empties each directory and leaves it in place. Missing
// directories are created.
func ClearCache(dirs ...string) error {
	var errs error
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			errs = multierr.Append(errs, internal.NewError(internal.ErrorCodeValidation, "cache directory is required", nil))
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = multierr.Append(errs, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to clear %s", dir), err))
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			errs = multierr.Append(errs, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to recreate %s", dir), err))
		}
	}
	return errs
}

// ProjectBounds recovers a project's bounding box from its raster's world
// file
func ProjectBounds(projectsDir, name, crs string) (geom.BoundingBox, error) {
	l := NewLayout(projectsDir, name)
	if _, err := os.Stat(l.Raster()); err != nil {
		return geom.BoundingBox{}, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("project %s not found", name), err)
	}

	frame, err := raster.ReadFrame(l.Raster(), crs)
	if err != nil {
		return geom.BoundingBox{}, err
	}
	return frame.Bounds(), nil
}
