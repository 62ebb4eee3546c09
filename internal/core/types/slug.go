package types

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ValidateSlug checks that slug is safe to use as a path below the storage
// root. Dataset slugs have the form owner/name, competition slugs are a
// single segment.
func ValidateSlug(slug string, kind Kind) error {
	invalid := func(reason string) error {
		return &OpError{
			Op:   "validate",
			Slug: slug,
			Err:  fmt.Errorf("%w: %s", ErrInvalidIdentifier, reason),
		}
	}

	if !kind.Valid() {
		return invalid(fmt.Sprintf("unknown kind %q", kind))
	}
	if strings.TrimSpace(slug) == "" {
		return invalid("slug is empty")
	}
	if strings.ContainsAny(slug, "\\\x00") {
		return invalid("slug contains a forbidden character")
	}
	if strings.HasPrefix(slug, "/") || filepath.IsAbs(slug) {
		return invalid("slug must be relative")
	}
	for _, seg := range strings.Split(slug, "/") {
		switch seg {
		case "":
			return invalid("slug has an empty segment")
		case ".", "..":
			return invalid("slug has a relative segment")
		}
	}
	if kind == KindCompetition && strings.Contains(slug, "/") {
		return invalid("competition slugs cannot contain '/'")
	}
	return nil
}

// ArchiveBaseName is the file name the Kaggle CLI writes for slug: the last
// segment of the slug with a .zip suffix.
func ArchiveBaseName(slug string) string {
	return path.Base(slug) + ".zip"
}

// LooksLikeSlug reports whether identifier already has the shape of a remote
// slug rather than a local alias.
func LooksLikeSlug(identifier string) bool {
	return strings.ContainsAny(identifier, "-/")
}
