package pipeline

import "kagglesync/internal/core/types"

// State reports how far slug has progressed, from the filesystem alone.
func (p *Pipeline) State(slug string, kind types.Kind) (types.SlugState, error) {
	entry, err := p.CacheEntry(slug, kind)
	if err != nil {
		return "", err
	}

	switch {
	case dirExists(entry.Dir()):
		return types.StateExtracted, nil
	case fileExists(entry.ArchivePath):
		return types.StateCached, nil
	default:
		return types.StateUnfetched, nil
	}
}
