package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"kagglesync/internal/core/types"
	"kagglesync/internal/listing"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ListingCachePath returns the cache file for a listing query. Each distinct
// (kind, search) pair maps to its own file.
func (p *Pipeline) ListingCachePath(kind types.Kind, search string) string {
	name := "kaggle_" + kind.String() + "_list"
	if key := searchKey(search); key != "" {
		name += "_" + key
	}
	return filepath.Join(p.root, name+".txt")
}

func sanitizeTerm(term string) string {
	term = strings.TrimSpace(term)
	term = unsafeFileChars.ReplaceAllString(term, "_")
	return strings.Trim(term, "._")
}

// searchKey is the file name part for search. A term that changes when made
// file safe gets a hash of the raw term after a "~", which sanitized terms
// never contain.
func searchKey(search string) string {
	search = strings.TrimSpace(search)
	key := sanitizeTerm(search)
	if key == search {
		return key
	}
	h := fnv.New32a()
	h.Write([]byte(search))
	return fmt.Sprintf("%s~%08x", key, h.Sum32())
}

// List returns the competitions or datasets matching search, sorted by
// sortBy. An empty sortBy uses the kind's default. The raw CLI output is
// cached per kind and search term; a cached query is parsed again without
// calling the CLI.
func (p *Pipeline) List(ctx context.Context, kind types.Kind, search, sortBy string) (*listing.Listing, error) {
	sortBy, err := kind.ValidateSortKey(sortBy)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	if kind == types.KindDataset && search == "" {
		return nil, &types.OpError{
			Op:  "list",
			Err: fmt.Errorf("%w: listing datasets requires a search term", types.ErrInvalidIdentifier),
		}
	}
	if search != "" && sanitizeTerm(search) == "" {
		return nil, &types.OpError{
			Op:  "list",
			Err: fmt.Errorf("%w: search term %q has no letters or digits", types.ErrInvalidIdentifier, search),
		}
	}

	cachePath := p.ListingCachePath(kind, search)
	if !fileExists(cachePath) {
		if err := p.refreshListing(ctx, kind, search, sortBy, cachePath); err != nil {
			return nil, err
		}
	} else {
		p.log.Debug("listing cached", "kind", kind, "search", search, "path", cachePath)
	}

	f, err := os.Open(cachePath)
	if err != nil {
		return nil, &types.OpError{Op: "list", Path: cachePath, Err: err}
	}
	defer f.Close()

	result, err := listing.Parse(f, listing.ColumnsFor(kind))
	if err != nil {
		return nil, &types.OpError{Op: "list", Path: cachePath, Err: err}
	}
	result.Kind = kind

	if result.Len() == 0 {
		p.log.Warn("listing is empty", "kind", kind, "search", search, "path", cachePath)
	}
	return result, nil
}

// refreshListing runs the CLI and stores its output at cachePath. Nothing is
// written when the invocation fails.
func (p *Pipeline) refreshListing(ctx context.Context, kind types.Kind, search, sortBy, cachePath string) error {
	args := []string{kind.Family(), "list"}
	if search != "" {
		args = append(args, "-s", search)
	}
	args = append(args, "--sort-by", sortBy)

	res, err := p.runner.Run(ctx, args)
	if err != nil {
		return &types.OpError{Op: "list", Err: fmt.Errorf("%w: %w", types.ErrExternalTool, err)}
	}
	if err := checkResult("list", "", res); err != nil {
		return err
	}

	if err := writeFileAtomic(cachePath, res.Stdout); err != nil {
		return &types.OpError{Op: "list", Path: cachePath, Err: err}
	}
	p.log.Debug("listing cached", "kind", kind, "search", search, "sort_by", sortBy, "path", cachePath)
	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".listing-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
