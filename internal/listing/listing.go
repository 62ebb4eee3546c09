// Package listing parses the fixed-width tables printed by the Kaggle CLI.
//
// A table looks like:
//
//	ref                  deadline             category    reward
//	-------------------  -------------------  ----------  ------
//	bike-sharing-demand  2015-05-29 23:59:00  Playground  Knowledge
//
// The dash runs of the separator line give the column extents. Everything
// above the separator is the CLI's own header and is discarded in favour of a
// fixed schema.
package listing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kagglesync/internal/core/types"
)

// Column schemas, positional with the CLI's table columns.
var (
	CompetitionColumns = []string{
		"competition_name",
		"deadline",
		"category",
		"reward",
		"team_count",
		"have_you_entered",
	}
	DatasetColumns = []string{
		"dataset_name",
		"dataset_description",
		"size",
		"last_updated",
		"download_count",
		"votes",
		"relevance_score",
	}
	SubmissionColumns = []string{
		"file_name",
		"date",
		"description",
		"status",
		"public_score",
		"private_score",
	}
)

// ColumnsFor returns the listing schema for kind.
func ColumnsFor(kind types.Kind) []string {
	if kind == types.KindDataset {
		return DatasetColumns
	}
	return CompetitionColumns
}

// Row is one table line keyed by the schema's column names.
type Row struct {
	columns []string
	values  []string
}

// Get returns the value of column, or "" when the schema has no such column.
func (r Row) Get(column string) string {
	for i, c := range r.columns {
		if c == column {
			return r.values[i]
		}
	}
	return ""
}

// Values returns the row's values in schema order.
func (r Row) Values() []string {
	return r.values
}

// Listing is a parsed table. Kind is set by callers that know which
// command family produced it.
type Listing struct {
	Kind    types.Kind
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (l *Listing) Len() int {
	return len(l.Rows)
}

type span struct {
	start, end int // end < 0 means "to end of line"
}

// Parse reads a fixed-width table from r and assigns columns positionally.
// Input without a separator line yields an empty listing: the CLI prints a
// plain message such as "No competitions found" instead of a table.
func Parse(r io.Reader, columns []string) (*Listing, error) {
	listing := &Listing{Columns: columns}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var spans []span
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if spans == nil {
			if isSeparator(line) {
				spans = separatorSpans(line)
				if len(spans) != len(columns) {
					return nil, fmt.Errorf("%w: table has %d columns, expected %d", types.ErrMalformedListing, len(spans), len(columns))
				}
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		listing.Rows = append(listing.Rows, Row{
			columns: columns,
			values:  sliceLine(line, spans),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}

	return listing, nil
}

// isSeparator reports whether line consists only of dashes and spaces.
func isSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	return strings.Trim(trimmed, "- ") == ""
}

func separatorSpans(line string) []span {
	var spans []span
	start := -1
	for i, c := range line {
		switch {
		case c == '-' && start < 0:
			start = i
		case c != '-' && start >= 0:
			spans = append(spans, span{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(line)})
	}
	// Columns own the gap up to the next column so overlong values survive
	for i := 0; i < len(spans)-1; i++ {
		spans[i].end = spans[i+1].start
	}
	if len(spans) > 0 {
		spans[len(spans)-1].end = -1
	}
	return spans
}

// sliceLine cuts line by rune offsets; the CLI pads columns by character,
// not by byte, so titles with multi-byte characters stay aligned.
func sliceLine(line string, spans []span) []string {
	runes := []rune(line)
	values := make([]string, len(spans))
	for i, s := range spans {
		if s.start >= len(runes) {
			continue
		}
		end := s.end
		if end < 0 || end > len(runes) {
			end = len(runes)
		}
		values[i] = strings.TrimSpace(string(runes[s.start:end]))
	}
	return values
}
