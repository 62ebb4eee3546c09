package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kagglesync/internal/core/types"
	"kagglesync/internal/runner"
)

// CacheEntry is a downloaded archive for one slug.
type CacheEntry struct {
	Kind        types.Kind
	Slug        string
	ArchivePath string
}

// Dir is the directory the archive extracts into.
func (e CacheEntry) Dir() string {
	return strings.TrimSuffix(e.ArchivePath, ".zip")
}

// CacheEntry computes the entry for slug without touching the filesystem.
func (p *Pipeline) CacheEntry(slug string, kind types.Kind) (CacheEntry, error) {
	if err := types.ValidateSlug(slug, kind); err != nil {
		return CacheEntry{}, err
	}
	return CacheEntry{
		Kind:        kind,
		Slug:        slug,
		ArchivePath: filepath.Join(p.root, filepath.FromSlash(slug)+".zip"),
	}, nil
}

// Fetch makes sure the archive for slug is in the storage root. An archive
// already present is returned as is, without calling the Kaggle CLI.
func (p *Pipeline) Fetch(ctx context.Context, slug string, kind types.Kind) (CacheEntry, error) {
	entry, err := p.CacheEntry(slug, kind)
	if err != nil {
		return CacheEntry{}, err
	}

	if fileExists(entry.ArchivePath) {
		p.log.Debug("archive cached", "slug", slug, "path", entry.ArchivePath)
		return entry, nil
	}

	if err := os.MkdirAll(filepath.Dir(entry.ArchivePath), 0o755); err != nil {
		return CacheEntry{}, &types.OpError{Op: "fetch", Slug: slug, Path: entry.ArchivePath, Err: err}
	}

	if p.mirror != nil {
		found, err := p.mirror.Get(ctx, kind, slug, entry.ArchivePath)
		switch {
		case err != nil:
			p.log.Warn("mirror lookup failed, downloading from kaggle", "slug", slug, "error", err)
		case found:
			return entry, nil
		}
	}

	args := downloadArgs(slug, kind)
	p.log.Info("downloading", "slug", slug, "kind", kind)

	res, err := p.runner.Run(ctx, args)
	if err != nil {
		return CacheEntry{}, &types.OpError{
			Op:   "fetch",
			Slug: slug,
			Err:  fmt.Errorf("%w: %w", types.ErrExternalTool, err),
		}
	}
	if err := checkResult("fetch", slug, res); err != nil {
		return CacheEntry{}, err
	}

	produced := filepath.Join(p.workDir, types.ArchiveBaseName(slug))
	if produced != entry.ArchivePath {
		if err := moveFile(produced, entry.ArchivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return CacheEntry{}, &types.OpError{Op: "fetch", Slug: slug, Path: produced, Err: err}
		}
	}

	if !fileExists(entry.ArchivePath) {
		return CacheEntry{}, &types.OpError{
			Op:     "fetch",
			Slug:   slug,
			Path:   entry.ArchivePath,
			Output: res.Output(),
			Err:    fmt.Errorf("%w: no archive at %s after download", types.ErrDownloadIncomplete, produced),
		}
	}
	p.log.Info("archive saved", "slug", slug, "path", entry.ArchivePath, "took", res.Duration)

	if p.mirror != nil {
		if err := p.mirror.Put(ctx, kind, slug, entry.ArchivePath); err != nil {
			p.log.Warn("mirror upload failed", "slug", slug, "error", err)
		}
	}

	return entry, nil
}

func downloadArgs(slug string, kind types.Kind) []string {
	if kind == types.KindDataset {
		return []string{kind.Family(), "download", slug}
	}
	return []string{kind.Family(), "download", "-c", slug}
}

// checkResult classifies an invocation. The access denied signature wins
// over the exit status; the CLI does not always exit non-zero on a 403.
func checkResult(op, slug string, res *runner.Result) error {
	if err := checkAccess(op, slug, res); err != nil {
		return err
	}
	if res.Success() {
		return nil
	}
	return &types.OpError{
		Op:     op,
		Slug:   slug,
		Output: res.Output(),
		Err:    fmt.Errorf("%w (exit status %d)", types.ErrExternalTool, res.ExitCode),
	}
}

func checkAccess(op, slug string, res *runner.Result) error {
	output := res.Output()
	if !isAccessDenied(output) {
		return nil
	}
	return &types.OpError{
		Op:     op,
		Slug:   slug,
		Output: output,
		Err:    fmt.Errorf("%w (exit status %d)", types.ErrAccessDenied, res.ExitCode),
	}
}

func isAccessDenied(output string) bool {
	for _, sig := range accessDeniedSignatures {
		if strings.Contains(output, sig) {
			return true
		}
	}
	return false
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst through a temporary file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".move-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
