package types

import (
	"fmt"
	"slices"
	"strings"
)

// Kind selects which Kaggle CLI command family an operation targets.
type Kind string

const (
	KindCompetition Kind = "competition"
	KindDataset     Kind = "dataset"
)

// Family returns the CLI command family for the kind.
func (k Kind) Family() string {
	switch k {
	case KindDataset:
		return "datasets"
	default:
		return "competitions"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCompetition || k == KindDataset
}

func (k Kind) String() string {
	return string(k)
}

// KindFromDatasetFlag maps the CLI's --dataset switch to a Kind.
func KindFromDatasetFlag(dataset bool) Kind {
	if dataset {
		return KindDataset
	}
	return KindCompetition
}

// Allowed --sort-by values per kind, in the order the Kaggle CLI documents them.
var (
	CompetitionSortKeys = []string{
		"grouped",
		"prize",
		"earliestDeadline",
		"latestDeadline",
		"numberOfTeams",
		"recentlyCreated",
	}
	DatasetSortKeys = []string{
		"hottest",
		"votes",
		"updated",
		"active",
		"published",
	}
)

const (
	DefaultCompetitionSortKey = "earliestDeadline"
	DefaultDatasetSortKey     = "votes"
)

// SortKeys returns the allowed sort keys for the kind.
func (k Kind) SortKeys() []string {
	if k == KindDataset {
		return DatasetSortKeys
	}
	return CompetitionSortKeys
}

// DefaultSortKey returns the sort key used when none is given.
func (k Kind) DefaultSortKey() string {
	if k == KindDataset {
		return DefaultDatasetSortKey
	}
	return DefaultCompetitionSortKey
}

// ValidateSortKey returns the effective sort key for k, or an
// ErrInvalidSortKey error when sortBy is outside the allowed set.
func (k Kind) ValidateSortKey(sortBy string) (string, error) {
	if sortBy == "" {
		return k.DefaultSortKey(), nil
	}
	if !slices.Contains(k.SortKeys(), sortBy) {
		return "", &OpError{
			Op:  "list",
			Err: fmt.Errorf("%w: %q is not valid for %s listings, allowed values are: %s", ErrInvalidSortKey, sortBy, k, strings.Join(k.SortKeys(), ", ")),
		}
	}
	return sortBy, nil
}
