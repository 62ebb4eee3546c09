package types

// SlugState is where a slug sits in the acquisition lifecycle. Transitions
// only move forward: Unfetched -> Cached -> Extracted.
type SlugState string

const (
	StateUnfetched SlugState = "unfetched"
	StateCached    SlugState = "cached"
	StateExtracted SlugState = "extracted"
)

// IsFetched returns true once the slug's data is available locally in any form
func (s SlugState) IsFetched() bool {
	return s == StateCached || s == StateExtracted
}

func (s SlugState) String() string {
	return string(s)
}
