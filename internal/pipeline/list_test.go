package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kagglesync/internal/core/types"
	"kagglesync/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// table renders rows the way the Kaggle CLI prints them: left aligned
// columns two spaces apart under a dashed separator.
func table(header []string, rows ...[]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, v := range row {
			widths[i] = max(widths[i], len(v))
		}
	}

	var b strings.Builder
	line := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(c)
				continue
			}
			b.WriteString(c + strings.Repeat(" ", widths[i]-len(c)))
		}
		b.WriteString("\n")
	}

	line(header)
	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	line(dashes)
	for _, row := range rows {
		line(row)
	}
	return b.String()
}

var competitionTable = table(
	[]string{"ref", "deadline", "category", "reward", "teamCount", "userHasEntered"},
	[]string{"bike-sharing-demand", "2015-05-29 23:59:00", "Getting Started", "Knowledge", "3242", "False"},
	[]string{"titanic", "2030-01-01 00:00:00", "Getting Started", "Knowledge", "15612", "True"},
)

var datasetTable = table(
	[]string{"ref", "title", "size", "lastUpdated", "downloadCount", "voteCount", "usabilityRating"},
	[]string{"uciml/iris", "Iris Species", "4KB", "2016-09-27 07:38:05", "500000", "4000", "0.7941176"},
)

func stdout(out string) func([]string) *runner.Result {
	return func([]string) *runner.Result {
		return &runner.Result{Stdout: []byte(out)}
	}
}

func TestListCompetitions(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(competitionTable)
	ctx := context.Background()

	l, err := env.p.List(ctx, types.KindCompetition, "", "")
	require.NoError(t, err)

	require.Equal(t, []string{"competitions", "list", "--sort-by", "earliestDeadline"}, env.cli.calls[0])
	assert.Equal(t, types.KindCompetition, l.Kind)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "bike-sharing-demand", l.Rows[0].Get("competition_name"))
	assert.Equal(t, "Getting Started", l.Rows[0].Get("category"))
	assert.Equal(t, "True", l.Rows[1].Get("have_you_entered"))
	assert.FileExists(t, filepath.Join(env.root, "kaggle_competition_list.txt"))

	// served from the cache file
	again, err := env.p.List(ctx, types.KindCompetition, "", "prize")
	require.NoError(t, err)
	assert.Equal(t, l.Rows, again.Rows)
	assert.Len(t, env.cli.calls, 1)
}

func TestListCompetitionsWithSearch(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(competitionTable)

	_, err := env.p.List(context.Background(), types.KindCompetition, "bike", "prize")
	require.NoError(t, err)

	assert.Equal(t, []string{"competitions", "list", "-s", "bike", "--sort-by", "prize"}, env.cli.calls[0])
	assert.FileExists(t, filepath.Join(env.root, "kaggle_competition_list_bike.txt"))
}

func TestListDatasets(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(datasetTable)

	l, err := env.p.List(context.Background(), types.KindDataset, "iris", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets", "list", "-s", "iris", "--sort-by", "votes"}, env.cli.calls[0])
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "uciml/iris", l.Rows[0].Get("dataset_name"))
	assert.Equal(t, "Iris Species", l.Rows[0].Get("dataset_description"))
	assert.Equal(t, "0.7941176", l.Rows[0].Get("relevance_score"))
	assert.FileExists(t, filepath.Join(env.root, "kaggle_dataset_list_iris.txt"))
}

func TestListRejectsUnknownSortKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.p.List(context.Background(), types.KindCompetition, "", "votes")
	assert.ErrorIs(t, err, types.ErrInvalidSortKey)

	_, err = env.p.List(context.Background(), types.KindDataset, "iris", "prize")
	assert.ErrorIs(t, err, types.ErrInvalidSortKey)

	assert.Empty(t, env.cli.calls)
}

func TestListDatasetsRequiresSearch(t *testing.T) {
	env := newTestEnv(t)

	for _, search := range []string{"", "  ", "///"} {
		_, err := env.p.List(context.Background(), types.KindDataset, search, "")
		assert.ErrorIs(t, err, types.ErrInvalidIdentifier, search)
	}
	assert.Empty(t, env.cli.calls)
}

func TestListFailureLeavesNoCache(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = failing(1, "", "401 - Unauthorized")

	_, err := env.p.List(context.Background(), types.KindCompetition, "", "")
	require.ErrorIs(t, err, types.ErrExternalTool)
	assert.NoFileExists(t, filepath.Join(env.root, "kaggle_competition_list.txt"))

	entries, err := os.ReadDir(env.root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// the next call tries again
	env.cli.handle = stdout(competitionTable)
	l, err := env.p.List(context.Background(), types.KindCompetition, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.Len(t, env.cli.calls, 2)
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout("No competitions found\n")

	l, err := env.p.List(context.Background(), types.KindCompetition, "zzzz", "")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestListingCachePathSanitizesSearch(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t,
		filepath.Join(env.root, "kaggle_dataset_list_iris.txt"),
		env.p.ListingCachePath(types.KindDataset, " iris "))
	assert.Equal(t,
		filepath.Join(env.root, "kaggle_competition_list.txt"),
		env.p.ListingCachePath(types.KindCompetition, ""))

	for _, term := range []string{"computer vision/cars", "../etc/passwd"} {
		path := env.p.ListingCachePath(types.KindDataset, term)
		assert.Equal(t, env.root, filepath.Dir(path), term)
		assert.Contains(t, filepath.Base(path), "~", term)
	}
}

func TestListingCachePathIsUniquePerTerm(t *testing.T) {
	env := newTestEnv(t)

	paths := map[string]string{}
	for _, term := range []string{"", "foo bar", "foo_bar", "foo/bar", "foo_bar~0", ".foo_bar"} {
		path := env.p.ListingCachePath(types.KindCompetition, term)
		if other, ok := paths[path]; ok {
			t.Fatalf("%q and %q share cache file %s", other, term, path)
		}
		paths[path] = term
	}
}

func TestListDistinctTermsDoNotShareCache(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(competitionTable)
	ctx := context.Background()

	_, err := env.p.List(ctx, types.KindCompetition, "foo bar", "")
	require.NoError(t, err)
	_, err = env.p.List(ctx, types.KindCompetition, "foo_bar", "")
	require.NoError(t, err)

	require.Len(t, env.cli.calls, 2)
	assert.Equal(t, []string{"competitions", "list", "-s", "foo bar", "--sort-by", "earliestDeadline"}, env.cli.calls[0])
	assert.Equal(t, []string{"competitions", "list", "-s", "foo_bar", "--sort-by", "earliestDeadline"}, env.cli.calls[1])
}

func TestListRejectsSearchWithoutUsableCharacters(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(competitionTable)
	ctx := context.Background()

	_, err := env.p.List(ctx, types.KindCompetition, "!!!", "")
	require.ErrorIs(t, err, types.ErrInvalidIdentifier)
	assert.Empty(t, env.cli.calls)
	assert.NoFileExists(t, filepath.Join(env.root, "kaggle_competition_list.txt"))

	// the unfiltered listing still comes from the CLI
	_, err = env.p.List(ctx, types.KindCompetition, "", "")
	require.NoError(t, err)
	require.Len(t, env.cli.calls, 1)
	assert.Equal(t, []string{"competitions", "list", "--sort-by", "earliestDeadline"}, env.cli.calls[0])
}

func TestSubmitMissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.p.Submit(context.Background(), "titanic", filepath.Join(env.root, "nope.csv"), "first try")
	require.ErrorIs(t, err, types.ErrFileNotFound)

	_, err = env.p.Submit(context.Background(), "titanic", env.root, "a directory")
	require.ErrorIs(t, err, types.ErrFileNotFound)

	assert.Empty(t, env.cli.calls)
}

func TestSubmitAndLatestScore(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout("Successfully submitted to Titanic - Machine Learning from Disaster")

	_, err := env.p.LatestScore()
	require.ErrorIs(t, err, types.ErrNoScoreYet)

	file := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(file, []byte("PassengerId,Survived\n892,0\n"), 0o644))

	sub, err := env.p.Submit(context.Background(), "titanic", file, "gradient boosting v2")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"competitions", "submit",
		"-c", "titanic",
		"-f", file,
		"-m", "gradient boosting v2",
	}, env.cli.calls[0])
	assert.Equal(t, "titanic", sub.Competition)
	assert.Equal(t, "gradient boosting v2", sub.Description)
	assert.False(t, sub.SubmittedAt.IsZero())
	assert.True(t, sub.Accepted())

	latest, err := env.p.LatestScore()
	require.NoError(t, err)
	assert.Equal(t, sub, latest)
	assert.Contains(t, latest.Output, "Successfully submitted")
}

func TestSubmitResolvesAlias(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout("Successfully submitted")

	file := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(file, []byte("id,count\n"), 0o644))

	_, err := env.p.Submit(context.Background(), "bike_sharing", file, "")
	require.NoError(t, err)
	assert.Equal(t, "bike-sharing-demand", env.cli.calls[0][3])
}

func TestSubmitAccessDenied(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = failing(1, "", "403 Client Error: Forbidden for url")

	file := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := env.p.Submit(context.Background(), "titanic", file, "m")
	require.ErrorIs(t, err, types.ErrAccessDenied)

	_, err = env.p.LatestScore()
	assert.ErrorIs(t, err, types.ErrNoScoreYet)
}

func TestSubmitReturnsToolOutputOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = failing(1, "Submission error: bad columns", "")

	file := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	sub, err := env.p.Submit(context.Background(), "titanic", file, "m")
	require.NoError(t, err)
	assert.False(t, sub.Accepted())
	assert.Equal(t, 1, sub.ExitCode)
	assert.Equal(t, "Submission error: bad columns", sub.Output)

	_, err = env.p.LatestScore()
	assert.ErrorIs(t, err, types.ErrNoScoreYet)
}

func TestSubmitAccessDeniedWithCleanExit(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout("403 - Forbidden")

	file := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := env.p.Submit(context.Background(), "titanic", file, "m")
	require.ErrorIs(t, err, types.ErrAccessDenied)

	_, err = env.p.LatestScore()
	assert.ErrorIs(t, err, types.ErrNoScoreYet)
}

func TestSubmissions(t *testing.T) {
	env := newTestEnv(t)
	env.cli.handle = stdout(table(
		[]string{"fileName", "date", "description", "status", "publicScore", "privateScore"},
		[]string{"submission.csv", "2024-03-01 10:00:00", "gradient boosting v2", "complete", "0.77990", "0.76555"},
		[]string{"baseline.csv", "2024-02-28 09:00:00", "baseline", "complete", "0.62200", "0.61000"},
	))

	l, err := env.p.Submissions(context.Background(), "titanic")
	require.NoError(t, err)

	assert.Equal(t, []string{"competitions", "submissions", "-c", "titanic"}, env.cli.calls[0])
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "0.77990", l.Rows[0].Get("public_score"))
	assert.Equal(t, "gradient boosting v2", l.Rows[0].Get("description"))

	// never cached
	_, err = env.p.Submissions(context.Background(), "titanic")
	require.NoError(t, err)
	assert.Len(t, env.cli.calls, 2)
}
