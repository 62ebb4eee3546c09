package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"kagglesync/internal/archive"
	"kagglesync/internal/core/types"
)

// ExtractionResult is an extracted archive: the directory and the files in it.
type ExtractionResult struct {
	Dir     string
	Entries []string
}

// Extract unpacks entry's archive into <storage_root>/<slug>/ and deletes
// the archive. An existing directory is listed and left alone; a missing
// archive is fetched first. Entries are the extracted file paths in sorted
// order, so repeated calls return the same slice.
func (p *Pipeline) Extract(ctx context.Context, entry CacheEntry) (ExtractionResult, error) {
	entry, err := p.CacheEntry(entry.Slug, entry.Kind)
	if err != nil {
		return ExtractionResult{}, err
	}
	dir := entry.Dir()

	if dirExists(dir) {
		entries, err := archive.List(dir)
		if err != nil {
			return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: dir, Err: err}
		}
		p.log.Debug("already extracted", "slug", entry.Slug, "dir", dir, "files", len(entries))
		return ExtractionResult{Dir: dir, Entries: entries}, nil
	}

	if !fileExists(entry.ArchivePath) {
		if _, err := p.Fetch(ctx, entry.Slug, entry.Kind); err != nil {
			return ExtractionResult{}, err
		}
	}

	// Extract next to the final directory so a failed extraction never
	// leaves the idempotence marker behind.
	staging, err := os.MkdirTemp(filepath.Dir(dir), ".extract-*")
	if err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: dir, Err: err}
	}
	defer os.RemoveAll(staging)

	opts := []archive.Option{archive.WithLimiter(p.limiter)}
	if p.progress != nil {
		opts = append(opts, archive.WithReporter(filepath.Base(entry.ArchivePath), p.progress))
	}

	p.log.Info("extracting", "slug", entry.Slug, "archive", entry.ArchivePath)
	if _, err := archive.Extract(ctx, entry.ArchivePath, staging, opts...); err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: entry.ArchivePath, Err: err}
	}

	// MkdirTemp creates 0700
	if err := os.Chmod(staging, 0o755); err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: staging, Err: err}
	}
	if err := os.Rename(staging, dir); err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: dir, Err: err}
	}
	if err := os.Remove(entry.ArchivePath); err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: entry.ArchivePath, Err: err}
	}

	entries, err := archive.List(dir)
	if err != nil {
		return ExtractionResult{}, &types.OpError{Op: "extract", Slug: entry.Slug, Path: dir, Err: err}
	}

	size, err := archive.Size(dir)
	if err != nil {
		p.log.Warn("failed to measure extracted size", "dir", dir, "error", err)
	}
	p.log.Info("extracted", "slug", entry.Slug, "dir", dir, "files", len(entries), "size", size)

	return ExtractionResult{Dir: dir, Entries: entries}, nil
}

// Acquire resolves identifier, fetches its archive and extracts it.
func (p *Pipeline) Acquire(ctx context.Context, identifier string, kind types.Kind) (ExtractionResult, error) {
	slug, err := p.Resolve(identifier, kind)
	if err != nil {
		return ExtractionResult{}, err
	}

	entry, err := p.CacheEntry(slug, kind)
	if err != nil {
		return ExtractionResult{}, err
	}
	state, err := p.State(slug, kind)
	if err != nil {
		return ExtractionResult{}, err
	}
	if !state.IsFetched() {
		if entry, err = p.Fetch(ctx, slug, kind); err != nil {
			return ExtractionResult{}, err
		}
	}
	return p.Extract(ctx, entry)
}
