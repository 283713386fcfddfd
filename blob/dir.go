package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore serves a local directory of generated bundle files as a blob
// container. Only regular .json files are listed; subdirectories are not
// descended into.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// List returns the .json files in the directory, sorted by name.
func (s *DirStore) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("listing %s: %w", s.root, ErrUnauthorized)
		}
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}

	var objects []ObjectInfo
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{Name: de.Name(), Size: info.Size()})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Name < objects[j].Name
	})
	return objects, nil
}

// Download reads one file from the directory.
func (s *DirStore) Download(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.Base(name)))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("downloading %s: %w", name, ErrNotFound)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("downloading %s: %w", name, ErrUnauthorized)
		default:
			return nil, fmt.Errorf("downloading %s: %w", name, err)
		}
	}
	return data, nil
}
