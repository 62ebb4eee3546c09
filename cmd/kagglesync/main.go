package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"kagglesync/internal/cli"
	"kagglesync/internal/config"
	"kagglesync/internal/core/types"

	"github.com/alecthomas/kong"
)

var version = "0.1.0"

type CompetitionsCmd struct {
	Search string `short:"s" long:"search" help:"Only list competitions matching this term"`
	SortBy string `long:"sort-by" help:"Sort order (${competition_sort_keys})"`
}

type DatasetsCmd struct {
	Search string `arg:"" help:"Search term"`
	SortBy string `long:"sort-by" help:"Sort order (${dataset_sort_keys})"`
}

type DownloadCmd struct {
	ID      string `arg:"" help:"Alias or slug (owner/name for datasets)"`
	Dataset bool   `short:"d" long:"dataset" help:"Treat the identifier as a dataset"`
}

type ExtractCmd struct {
	ID        string      `arg:"" help:"Alias or slug (owner/name for datasets)"`
	Dataset   bool        `short:"d" long:"dataset" help:"Treat the identifier as a dataset"`
	RateLimit types.Bytes `long:"rate-limit" help:"Limit disk writes, e.g. 20MB (per second)"`
	Progress  bool        `short:"p" long:"progress" help:"Show a progress bar"`
}

type ResolveCmd struct {
	ID      string `arg:"" optional:"" help:"Alias to resolve; omit to list all aliases"`
	Dataset bool   `short:"d" long:"dataset" help:"Use the dataset alias table"`
	Strict  bool   `long:"strict" help:"Fail when the identifier is not a known alias"`
}

type StatusCmd struct {
	ID      string `arg:"" help:"Alias or slug"`
	Dataset bool   `short:"d" long:"dataset" help:"Treat the identifier as a dataset"`
}

type SubmitCmd struct {
	Competition string `arg:"" help:"Competition alias or slug"`
	File        string `arg:"" help:"Submission file"`
	Message     string `short:"m" long:"message" default:"" help:"Submission description"`
}

type SubmissionsCmd struct {
	Competition string `arg:"" help:"Competition alias or slug"`
}

type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:"kagglesync.yaml" help:"Where to write the config file"`
	Force bool   `short:"f" long:"force" help:"Overwrite an existing file"`
}

type ConfigShowCmd struct{}

type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"init" help:"Write a starter config file"`
	Show ConfigShowCmd `cmd:"show" help:"Print the effective configuration"`
}

type CLI struct {
	ConfigFile string           `short:"c" long:"config" default:"${config_file}" help:"Path to config file"`
	Debug      bool             `long:"debug" help:"Enable debug logging"`
	Root       string           `long:"root" help:"Storage root (default: <project>/data)"`
	Version    kong.VersionFlag `short:"v" long:"version" help:"Print version and exit"`

	Competitions CompetitionsCmd `cmd:"competitions" help:"List competitions"`
	Datasets     DatasetsCmd     `cmd:"datasets" help:"Search datasets"`
	Download     DownloadCmd     `cmd:"download" help:"Download an archive into the storage root"`
	Extract      ExtractCmd      `cmd:"extract" help:"Download and extract a competition or dataset"`
	Resolve      ResolveCmd      `cmd:"resolve" help:"Resolve an alias to its slug"`
	Status       StatusCmd       `cmd:"status" help:"Show whether a slug is fetched or extracted"`
	Submit       SubmitCmd       `cmd:"submit" help:"Submit a file to a competition"`
	Submissions  SubmissionsCmd  `cmd:"submissions" help:"List submissions and scores for a competition"`
	Config       ConfigCmd       `cmd:"config" help:"Manage the config file"`
}

func (c *CLI) options() cli.Options {
	return cli.Options{
		ConfigFile: c.ConfigFile,
		Debug:      c.Debug,
		Root:       c.Root,
	}
}

func (c *CLI) client() (*cli.Client, error) {
	return cli.NewClient(c.options())
}

func (c *CompetitionsCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	l, err := client.Pipeline.List(ctx, types.KindCompetition, c.Search, c.SortBy)
	if err != nil {
		return err
	}
	return client.PrintListing(l)
}

func (c *DatasetsCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	l, err := client.Pipeline.List(ctx, types.KindDataset, c.Search, c.SortBy)
	if err != nil {
		return err
	}
	return client.PrintListing(l)
}

func (c *DownloadCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	kind := types.KindFromDatasetFlag(c.Dataset)
	slug, err := client.Pipeline.Resolve(c.ID, kind)
	if err != nil {
		return err
	}
	entry, err := client.Pipeline.Fetch(ctx, slug, kind)
	if err != nil {
		return err
	}
	client.PrintEntry(entry)
	return nil
}

func (c *ExtractCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	opts := cliRoot.options()
	opts.RateLimit = c.RateLimit
	opts.Progress = c.Progress
	client, err := cli.NewClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Pipeline.Acquire(ctx, c.ID, types.KindFromDatasetFlag(c.Dataset))
	if err != nil {
		return err
	}
	client.PrintExtraction(res)
	return nil
}

func (c *ResolveCmd) Run(cliRoot *CLI) error {
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	kind := types.KindFromDatasetFlag(c.Dataset)
	if c.ID == "" {
		return client.PrintAliases(client.Pipeline.Aliases(kind))
	}

	resolve := client.Pipeline.Resolve
	if c.Strict {
		resolve = client.Pipeline.ResolveStrict
	}
	slug, err := resolve(c.ID, kind)
	if err != nil {
		return err
	}
	fmt.Println(slug)
	return nil
}

func (c *StatusCmd) Run(cliRoot *CLI) error {
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	kind := types.KindFromDatasetFlag(c.Dataset)
	slug, err := client.Pipeline.Resolve(c.ID, kind)
	if err != nil {
		return err
	}
	entry, err := client.Pipeline.CacheEntry(slug, kind)
	if err != nil {
		return err
	}
	state, err := client.Pipeline.State(slug, kind)
	if err != nil {
		return err
	}
	client.PrintState(slug, state, entry)
	return nil
}

func (c *SubmitCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.Pipeline.Submit(ctx, c.Competition, c.File, c.Message)
	if err != nil {
		return err
	}
	client.PrintSubmission(sub)
	if !sub.Accepted() {
		return fmt.Errorf("submission to %s failed (exit status %d)", sub.Competition, sub.ExitCode)
	}
	return nil
}

func (c *SubmissionsCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifySubContext()
	defer cancel()
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()

	l, err := client.Pipeline.Submissions(ctx, c.Competition)
	if err != nil {
		return err
	}
	return client.PrintListing(l)
}

func (c *ConfigInitCmd) Run() error {
	if err := config.WriteStarter(c.Path, c.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Path)
	return nil
}

func (c *ConfigShowCmd) Run(cliRoot *CLI) error {
	client, err := cliRoot.client()
	if err != nil {
		return err
	}
	defer client.Close()
	return client.PrintConfig()
}

func main() {
	var cliRoot CLI
	kctx := kong.Parse(
		&cliRoot,
		kong.Vars{
			"version":               version,
			"config_file":           "",
			"competition_sort_keys": strings.Join(types.CompetitionSortKeys, ", "),
			"dataset_sort_keys":     strings.Join(types.DatasetSortKeys, ", "),
		},
		kong.Name("kagglesync"),
		kong.Description("Fetch, cache and extract Kaggle competitions and datasets."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err := kctx.Run(&cliRoot); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, types.ErrAccessDenied) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

