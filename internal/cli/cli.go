// Package cli wires configuration, logging and the pipeline together for
// the kagglesync command and renders results for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"kagglesync/internal/archive"
	"kagglesync/internal/config"
	"kagglesync/internal/core/logger"
	"kagglesync/internal/core/progress"
	"kagglesync/internal/core/types"
	"kagglesync/internal/listing"
	"kagglesync/internal/mirror"
	"kagglesync/internal/pipeline"

	"github.com/dustin/go-humanize"
)

// Options are the global command line settings.
type Options struct {
	ConfigFile string
	Debug      bool
	Root       string      // overrides storage.root
	RateLimit  types.Bytes // overrides extract.rate_limit when non-zero
	Progress   bool        // forces extract.progress on
}

type Client struct {
	Pipeline *pipeline.Pipeline
	Config   *types.Config

	log      *logger.Logger
	progress *progress.Progress
	out      io.Writer
}

type ClientOption func(*clientSettings)

type clientSettings struct {
	out      io.Writer
	pipeline []pipeline.Option
}

// WithOutput sets where results are printed. Defaults to stdout.
func WithOutput(w io.Writer) ClientOption {
	return func(s *clientSettings) {
		s.out = w
	}
}

// WithPipelineOptions passes extra options to the pipeline.
func WithPipelineOptions(opts ...pipeline.Option) ClientOption {
	return func(s *clientSettings) {
		s.pipeline = append(s.pipeline, opts...)
	}
}

// NewClient loads configuration and builds the pipeline it describes.
func NewClient(opts Options, clientOpts ...ClientOption) (*Client, error) {
	settings := &clientSettings{out: os.Stdout}
	for _, opt := range clientOpts {
		opt(settings)
	}

	cfg, err := config.LoadConfig(config.ResolveConfigPath(opts.ConfigFile))
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Debug = true
	}
	if opts.Root != "" {
		cfg.Storage.Root = opts.Root
	}
	if opts.RateLimit != 0 {
		cfg.Extract.RateLimit = opts.RateLimit
	}
	if opts.Progress {
		cfg.Extract.Progress = true
	}

	if cfg.Debug {
		logger.SetDefaultLevel(logger.LevelDebug)
	}
	log := logger.NewLogger()

	c := &Client{
		Config: cfg,
		log:    log,
		out:    settings.out,
	}

	pipelineOpts := []pipeline.Option{pipeline.WithLogger(log.Named("pipeline"))}
	if cfg.Extract.Progress {
		c.progress = progress.NewProgress()
		pipelineOpts = append(pipelineOpts, pipeline.WithProgress(c.progress))
	}

	m, err := mirror.FromConfig(cfg.Mirror, types.NewRateLimiter(cfg.Extract.RateLimit), mirrorOptions(log, c.progress)...)
	if err != nil {
		return nil, err
	}
	if m != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithMirror(m))
	}

	p, err := pipeline.New(*cfg, append(pipelineOpts, settings.pipeline...)...)
	if err != nil {
		return nil, err
	}
	c.Pipeline = p
	return c, nil
}

func mirrorOptions(log *logger.Logger, reporter *progress.Progress) []mirror.S3MirrorOption {
	opts := []mirror.S3MirrorOption{mirror.WithLogger(log.Named("mirror"))}
	if reporter != nil {
		opts = append(opts, mirror.WithReporter(reporter))
	}
	return opts
}

// Close waits for progress bars to finish rendering.
func (c *Client) Close() {
	if c.progress != nil {
		c.progress.Wait()
	}
}

func (c *Client) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

// PrintConfig prints the effective configuration as YAML.
func (c *Client) PrintConfig() error {
	return config.Encode(c.out, c.Config)
}

// PrintListing prints l as an aligned table with the schema's column names.
func (c *Client) PrintListing(l *listing.Listing) error {
	if l.Len() == 0 {
		fmt.Fprintln(c.out, "No results.")
		return nil
	}

	tw := c.newTable()
	fmt.Fprintln(tw, strings.Join(l.Columns, "\t"))
	for _, row := range l.Rows {
		fmt.Fprintln(tw, strings.Join(row.Values(), "\t"))
	}
	return tw.Flush()
}

// PrintAliases prints an alias table sorted by alias.
func (c *Client) PrintAliases(aliases map[string]string) error {
	tw := c.newTable()
	fmt.Fprintln(tw, "ALIAS\tSLUG")
	keys := make([]string, 0, len(aliases))
	for alias := range aliases {
		keys = append(keys, alias)
	}
	slices.Sort(keys)
	for _, alias := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", alias, aliases[alias])
	}
	return tw.Flush()
}

func (c *Client) PrintEntry(entry pipeline.CacheEntry) {
	fmt.Fprintf(c.out, "Archive: %s\n", entry.ArchivePath)
	if info, err := os.Stat(entry.ArchivePath); err == nil {
		fmt.Fprintf(c.out, "Size: %s\n", humanize.Bytes(uint64(info.Size())))
	}
}

func (c *Client) PrintExtraction(res pipeline.ExtractionResult) {
	fmt.Fprintf(c.out, "Directory: %s\n", res.Dir)
	if size, err := archive.Size(res.Dir); err == nil {
		fmt.Fprintf(c.out, "Size: %s\n", size)
	}
	fmt.Fprintf(c.out, "Files: %d\n", len(res.Entries))
	for _, name := range res.Entries {
		fmt.Fprintf(c.out, "  - %s\n", name)
	}
}

func (c *Client) PrintState(slug string, state types.SlugState, entry pipeline.CacheEntry) {
	fmt.Fprintf(c.out, "Slug: %s\n", slug)
	fmt.Fprintf(c.out, "Kind: %s\n", entry.Kind)
	fmt.Fprintf(c.out, "State: %s\n", state)
	switch state {
	case types.StateCached:
		c.PrintEntry(entry)
	case types.StateExtracted:
		fmt.Fprintf(c.out, "Directory: %s\n", entry.Dir())
		if size, err := archive.Size(entry.Dir()); err == nil {
			fmt.Fprintf(c.out, "Size: %s\n", size)
		}
	}
}

func (c *Client) PrintSubmission(sub pipeline.Submission) {
	fmt.Fprintf(c.out, "Competition: %s\n", sub.Competition)
	fmt.Fprintf(c.out, "File: %s\n", sub.File)
	if sub.Description != "" {
		fmt.Fprintf(c.out, "Description: %s\n", sub.Description)
	}
	fmt.Fprintf(c.out, "Submitted: %s\n", humanize.Time(sub.SubmittedAt))
	if !sub.Accepted() {
		fmt.Fprintf(c.out, "Exit status: %d\n", sub.ExitCode)
	}
	if sub.Output != "" {
		fmt.Fprintln(c.out, sub.Output)
	}
}
