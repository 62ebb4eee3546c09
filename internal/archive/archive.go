// Package archive extracts downloaded ZIP archives into the storage root.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"kagglesync/internal/core/types"
)

// Reporter receives byte progress for an extraction. progress.Progress
// satisfies it.
type Reporter interface {
	Start(name string, size int64)
	Add(name string, n int64)
	Done(name string)
}

type Option func(*extractor)

// WithLimiter throttles the bytes written to disk.
func WithLimiter(limiter *types.RateLimiter) Option {
	return func(e *extractor) {
		e.limiter = limiter
	}
}

// WithReporter reports progress under name.
func WithReporter(name string, reporter Reporter) Option {
	return func(e *extractor) {
		e.name = name
		e.reporter = reporter
	}
}

type extractor struct {
	limiter  *types.RateLimiter
	reporter Reporter
	name     string
}

// Extract writes every entry of the ZIP archive at src below dest and
// returns the file entry names in archive order. Directory entries are
// created but not returned. dest is created if missing.
// Entries that would land outside dest fail the whole extraction with
// types.ErrUnsafeArchiveEntry before anything is written.
func Extract(ctx context.Context, src, dest string, opts ...Option) ([]string, error) {
	e := &extractor{limiter: types.UnlimitedRateLimiter()}
	for _, opt := range opts {
		opt(e)
	}

	zr, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return nil, &types.OpError{Op: "extract", Path: src, Err: types.ErrUnsafeArchiveEntry}
	}
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", src, err)
	}
	defer zr.Close()

	var total int64
	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return nil, err
		}
		targets[i] = target
		total += int64(f.UncompressedSize64)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}

	if e.reporter != nil {
		e.reporter.Start(e.name, total)
		defer e.reporter.Done(e.name)
	}

	names := make([]string, 0, len(zr.File))
	for i, f := range zr.File {
		if err := e.extractFile(ctx, f, targets[i]); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

func (e *extractor) extractFile(ctx context.Context, f *zip.File, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	opts := []types.RWOption{
		types.RWWithIOReader(rc),
		types.RWWithIOWriter(out),
		types.RWWithLimiter(e.limiter),
	}
	if e.reporter != nil {
		opts = append(opts, types.RWWithCallback(func(n int64) {
			e.reporter.Add(e.name, n)
		}))
	}

	if _, err := types.NewReaderWriter(opts...).Transfer(ctx); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin resolves an archive entry name below dest.
func safeJoin(dest, name string) (string, error) {
	unsafe := func() (string, error) {
		return "", &types.OpError{
			Op:   "extract",
			Path: name,
			Err:  types.ErrUnsafeArchiveEntry,
		}
	}

	if name == "" || strings.Contains(name, "\\") || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return unsafe()
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return unsafe()
	}
	return target, nil
}

// List returns the slash-separated paths of the regular files below dir,
// sorted as strings. For a freshly extracted archive it holds the same names
// Extract returned, in sorted rather than archive order.
func List(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// Size returns the total size of the regular files below dir.
func Size(dir string) (types.Bytes, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return types.Bytes(total), err
}
