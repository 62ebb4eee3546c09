// Package projectroot locates the project a command is run from, so the
// storage root can default to <project>/data.
package projectroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMarker is the version-control directory that marks a project root.
const DefaultMarker = ".git"

// DataDir is the storage directory created below the project root.
const DataDir = "data"

var ErrNotFound = errors.New("project root not found")

// Finder locates a project root by searching for Marker upward.
type Finder struct {
	Marker string // defaults to ".git"
}

func NewFinder(marker string) *Finder {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Finder{Marker: marker}
}

// FindRoot walks upward from start until a directory containing the marker
// is found. A file path starts the search from its directory.
func (f *Finder) FindRoot(start string) (string, error) {
	if start == "" {
		return "", fmt.Errorf("find root: start path is empty")
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("find root: %w", err)
	}

	info, statErr := os.Stat(abs)
	if statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	cur := filepath.Clean(abs)
	for {
		if _, err := os.Stat(filepath.Join(cur, f.Marker)); err == nil {
			return cur, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("%w: no %s above %s", ErrNotFound, f.Marker, abs)
		}
		cur = parent
	}
}

// StorageRoot returns <project root>/data for start, falling back to the
// parent of start when no marker is found.
func (f *Finder) StorageRoot(start string) (string, error) {
	root, err := f.FindRoot(start)
	if errors.Is(err, ErrNotFound) {
		abs, absErr := filepath.Abs(start)
		if absErr != nil {
			return "", fmt.Errorf("storage root: %w", absErr)
		}
		root = filepath.Dir(abs)
	} else if err != nil {
		return "", err
	}
	return filepath.Join(root, DataDir), nil
}
