package pipeline

import (
	"fmt"
	"strings"

	"kagglesync/internal/core/types"
)

// Resolve maps identifier to a remote slug through the kind's alias table.
// Identifiers without an alias are returned unchanged and treated as literal
// slugs.
func (p *Pipeline) Resolve(identifier string, kind types.Kind) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", &types.OpError{
			Op:  "resolve",
			Err: fmt.Errorf("%w: identifier is empty", types.ErrInvalidIdentifier),
		}
	}

	if slug, ok := p.cfg.Aliases.For(kind)[identifier]; ok {
		p.log.Debug("alias resolved", "alias", identifier, "slug", slug, "kind", kind)
		return slug, nil
	}

	if !types.LooksLikeSlug(identifier) {
		p.log.Debug("no alias, using identifier as slug", "identifier", identifier, "kind", kind)
	}
	return identifier, nil
}

// ResolveStrict is Resolve without the literal fallback: identifiers that
// are not aliases fail with ErrInvalidIdentifier.
func (p *Pipeline) ResolveStrict(identifier string, kind types.Kind) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if slug, ok := p.cfg.Aliases.For(kind)[identifier]; ok && identifier != "" {
		return slug, nil
	}
	return "", &types.OpError{
		Op:   "resolve",
		Slug: identifier,
		Err:  fmt.Errorf("%w: no %s alias named %q", types.ErrInvalidIdentifier, kind, identifier),
	}
}

// Aliases returns the alias table for kind.
func (p *Pipeline) Aliases(kind types.Kind) map[string]string {
	return p.cfg.Aliases.For(kind)
}
