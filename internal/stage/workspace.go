// internal/stage/workspace.go - Per-build scratch directory
package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/valpere/mapforge/internal"
)

// Workspace is a scratch directory owned by one build
type Workspace struct {
	ID  string
	Dir string
}

// NewWorkspace creates a fresh run directory below root
func NewWorkspace(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to create workspace", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Path joins elem onto the workspace directory
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// CleanExcept removes every sub-directory of the workspace and every file
// not listed in keep. keep holds paths as returned by Path or bare names.
func (w *Workspace) CleanExcept(keep []string) error {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to list workspace", err)
	}

	retain := make(map[string]bool, len(keep))
	for _, k := range keep {
		retain[filepath.Base(k)] = true
	}

	for _, entry := range entries {
		if !entry.IsDir() && retain[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.Dir, entry.Name())); err != nil {
			return internal.NewError(internal.ErrorCodeFileSystem,
				fmt.Sprintf("failed to remove %s", entry.Name()), err)
		}
	}
	return nil
}

// Remove deletes the workspace
func (w *Workspace) Remove() error {
	if w == nil || w.Dir == "" || strings.TrimSpace(w.ID) == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
