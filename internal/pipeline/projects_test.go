// internal/pipeline/projects_test.go - Unit tests for project management
package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valpere/mapforge/internal"
)

func TestDeleteProject(t *testing.T) {
	projectsDir := t.TempDir()
	l := NewLayout(projectsDir, "demo")
	if err := os.MkdirAll(l.Slices(), 0755); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := os.WriteFile(l.Thematic(), []byte("jpeg"), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := DeleteProject(projectsDir, "demo"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := os.Stat(l.Dir); !os.IsNotExist(err) {
		t.Errorf("Expected project directory removed, got %v", err)
	}

	tests := []struct {
		name    string
		project string
		code    string
	}{
		{"already deleted", "demo", internal.ErrorCodeNotFound},
		{"never built", "other", internal.ErrorCodeNotFound},
		{"empty name", "", internal.ErrorCodeValidation},
		{"parent directory", "..", internal.ErrorCodeValidation},
		{"source cache", "cache", internal.ErrorCodeValidation},
		{"path in name", "a/b", internal.ErrorCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := DeleteProject(projectsDir, tt.project); !internal.HasCode(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}

	if _, err := os.Stat(projectsDir); err != nil {
		t.Errorf("Expected projects directory kept, got %v", err)
	}
}

func TestDeleteProjectLeavesOthers(t *testing.T) {
	projectsDir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.MkdirAll(NewLayout(projectsDir, name).Dir, 0755); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if err := DeleteProject(projectsDir, "a"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	projects, err := ListProjects(projectsDir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "b" {
		t.Errorf("Expected only project b, got %+v", projects)
	}
}

func TestClearCache(t *testing.T) {
	root := t.TempDir()
	sources := filepath.Join(root, "projects", "cache")
	work := filepath.Join(root, "tmp")
	project := NewLayout(filepath.Join(root, "projects"), "demo")

	for _, path := range []string{
		filepath.Join(sources, "01", "BDFORET", "FORMATION_VEGETALE.geojson"),
		filepath.Join(work, "run", "BATIMENT.geojson"),
		project.Thematic(),
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	missing := filepath.Join(root, "never-created")

	if err := ClearCache(sources, work, missing); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, dir := range []string{sources, work, missing} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Errorf("Expected %s to exist, got %v", dir, err)
			continue
		}
		if len(entries) != 0 {
			t.Errorf("Expected %s empty, got %d entries", dir, len(entries))
		}
	}
	if _, err := os.Stat(project.Thematic()); err != nil {
		t.Errorf("Expected project files untouched, got %v", err)
	}
}

func TestClearCacheRejectsEmptyDir(t *testing.T) {
	work := filepath.Join(t.TempDir(), "tmp")

	err := ClearCache("", work)
	if !internal.HasCode(err, internal.ErrorCodeValidation) {
		t.Errorf("Expected %s, got %v", internal.ErrorCodeValidation, err)
	}
	if _, statErr := os.Stat(work); statErr != nil {
		t.Errorf("Expected remaining directories cleared, got %v", statErr)
	}
}
