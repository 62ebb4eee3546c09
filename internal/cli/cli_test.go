package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kagglesync/internal/core/types"
	"kagglesync/internal/listing"
	"kagglesync/internal/pipeline"
	"kagglesync/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, cfgYAML string, r runner.Runner) (*Client, *bytes.Buffer) {
	t.Helper()
	return newTestClientWith(t, Options{}, cfgYAML, r)
}

func newTestClientWith(t *testing.T, opts Options, cfgYAML string, r runner.Runner) (*Client, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kagglesync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("kaggle:\n  binary: kaggle\n"+cfgYAML), 0o644))

	var out bytes.Buffer
	opts.ConfigFile = cfgPath
	opts.Root = filepath.Join(dir, "data")
	c, err := NewClient(
		opts,
		WithOutput(&out),
		WithPipelineOptions(pipeline.WithRunner(r)),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, &out
}

func TestNewClientAppliesConfig(t *testing.T) {
	c, _ := newTestClient(t, "aliases:\n  competitions:\n    titanic_tutorial: titanic\n", runner.Func(nil))

	assert.True(t, strings.HasSuffix(c.Pipeline.StorageRoot(), "data"))
	assert.DirExists(t, c.Pipeline.StorageRoot())

	slug, err := c.Pipeline.Resolve("titanic_tutorial", types.KindCompetition)
	require.NoError(t, err)
	assert.Equal(t, "titanic", slug)

	slug, err = c.Pipeline.Resolve("bike_sharing", types.KindCompetition)
	require.NoError(t, err)
	assert.Equal(t, "bike-sharing-demand", slug)
}

func TestNewClientFlagOverrides(t *testing.T) {
	c, _ := newTestClientWith(t, Options{RateLimit: types.Bytes(5_000_000)}, "extract:\n  rate_limit: 1MB\n", runner.Func(nil))

	assert.Equal(t, types.Bytes(5_000_000), c.Config.Extract.RateLimit)
	assert.False(t, c.Config.Extract.Progress)
}

func TestPrintConfig(t *testing.T) {
	c, out := newTestClient(t, "extract:\n  rate_limit: 1MB\n", runner.Func(nil))

	require.NoError(t, c.PrintConfig())
	assert.Contains(t, out.String(), "rate_limit: 1.0 MB")
	assert.Contains(t, out.String(), "binary: kaggle")
	assert.NotContains(t, out.String(), "mirror:")
}

func TestPrintListing(t *testing.T) {
	var calls int
	r := runner.Func(func(context.Context, []string) (*runner.Result, error) {
		calls++
		return &runner.Result{Stdout: []byte(
			"ref      deadline             category  reward  teamCount  userHasEntered\n" +
				"-------  -------------------  --------  ------  ---------  --------------\n" +
				"titanic  2030-01-01 00:00:00  Starter   Kudos   15612      True\n",
		)}, nil
	})
	c, out := newTestClient(t, "", r)

	l, err := c.Pipeline.List(context.Background(), types.KindCompetition, "", "")
	require.NoError(t, err)
	require.NoError(t, c.PrintListing(l))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "competition_name"))
	assert.Contains(t, lines[1], "titanic")
	assert.Contains(t, lines[1], "2030-01-01 00:00:00")
	assert.Equal(t, 1, calls)
}

func TestPrintEmptyListing(t *testing.T) {
	c, out := newTestClient(t, "", runner.Func(nil))

	require.NoError(t, c.PrintListing(&listing.Listing{Columns: listing.CompetitionColumns}))
	assert.Equal(t, "No results.\n", out.String())
}

func TestPrintAliasesSorted(t *testing.T) {
	c, out := newTestClient(t, "", runner.Func(nil))

	require.NoError(t, c.PrintAliases(map[string]string{"b": "slug-b", "a": "slug-a"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "a "))
	assert.True(t, strings.HasPrefix(lines[2], "b "))
}

func TestPrintState(t *testing.T) {
	c, out := newTestClient(t, "", runner.Func(nil))

	entry, err := c.Pipeline.CacheEntry("titanic", types.KindCompetition)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(entry.ArchivePath, make([]byte, 2048), 0o644))

	state, err := c.Pipeline.State("titanic", types.KindCompetition)
	require.NoError(t, err)
	c.PrintState("titanic", state, entry)

	assert.Contains(t, out.String(), "State: cached")
	assert.Contains(t, out.String(), "Size: 2.0 kB")
}

func TestPrintSubmission(t *testing.T) {
	c, out := newTestClient(t, "", runner.Func(nil))

	c.PrintSubmission(pipeline.Submission{
		Competition: "titanic",
		File:        "submission.csv",
		Description: "v2",
		Output:      "Successfully submitted",
		SubmittedAt: time.Now(),
	})
	assert.Contains(t, out.String(), "Competition: titanic")
	assert.Contains(t, out.String(), "Successfully submitted")
	assert.NotContains(t, out.String(), "Exit status")

	out.Reset()
	c.PrintSubmission(pipeline.Submission{
		Competition: "titanic",
		File:        "submission.csv",
		Output:      "Submission error: bad columns",
		ExitCode:    1,
		SubmittedAt: time.Now(),
	})
	assert.Contains(t, out.String(), "Exit status: 1")
	assert.Contains(t, out.String(), "Submission error: bad columns")
}
