// internal/stage/finder.go - Source dataset lookup
package stage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions recognised for staged source datasets, in preference order
var Extensions = []string{".geojson", ".geojson.gz", ".json"}

// FindByBasename returns every regular file below root whose name without
// extension equals basename. Directories are visited breadth-first with an
// explicit worklist and entries sorted by name, so results are stable.
func FindByBasename(root, basename string) ([]string, error) {
	var found []string
	queue := []string{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				queue = append(queue, path)
				continue
			}
			if entry.Type().IsRegular() && stem(entry.Name()) == basename {
				found = append(found, path)
			}
		}
	}

	return found, nil
}

// FindLayer locates the dataset named layer below root. Only files with one
// of Extensions qualify; the first match in extension preference order wins.
// The boolean is false when no candidate exists.
func FindLayer(root, layer string) (string, bool, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	candidates, err := FindByBasename(root, layer)
	if err != nil {
		return "", false, err
	}

	for _, ext := range Extensions {
		for _, path := range candidates {
			if strings.EqualFold(strings.TrimPrefix(filepath.Base(path), layer), ext) {
				return path, true, nil
			}
		}
	}
	return "", false, nil
}

// stem strips every recognised extension plus one generic extension
func stem(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
