// Package pipeline acquires Kaggle competitions and datasets into a local
// storage root: resolve an identifier, fetch the archive once, extract it
// once, and list or submit through the Kaggle CLI.
//
// A Pipeline is meant for one goroutine; run one pipeline per storage root.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"kagglesync/internal/archive"
	"kagglesync/internal/core/logger"
	"kagglesync/internal/core/types"
	"kagglesync/internal/mirror"
	"kagglesync/internal/projectroot"
	"kagglesync/internal/runner"
)

// Access-denied signatures printed by the Kaggle CLI when the competition
// rules have not been accepted.
var accessDeniedSignatures = []string{
	"403 - Forbidden",
	"403 Client Error: Forbidden",
}

type Pipeline struct {
	cfg     types.Config
	root    string
	workDir string

	runner   runner.Runner
	log      *logger.Logger
	mirror   mirror.Mirror
	progress archive.Reporter
	limiter  *types.RateLimiter

	latest *Submission
}

type Option func(*Pipeline)

// WithRunner replaces the Kaggle CLI process runner.
func WithRunner(r runner.Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithMirror enables the archive mirror. A nil mirror is ignored.
func WithMirror(m mirror.Mirror) Option {
	return func(p *Pipeline) {
		p.mirror = m
	}
}

// WithProgress reports extraction progress.
func WithProgress(reporter archive.Reporter) Option {
	return func(p *Pipeline) {
		p.progress = reporter
	}
}

// New creates a pipeline and its storage root. When cfg.Storage.Root is
// empty the root is <project>/data, with the project found by searching for
// cfg.Storage.Marker upward from the working directory.
func New(cfg types.Config, opts ...Option) (*Pipeline, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	root := cfg.Storage.Root
	if root == "" {
		root, err = projectroot.NewFinder(cfg.Storage.Marker).StorageRoot(cwd)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve storage root: %w", err)
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}

	workDir := cfg.Kaggle.WorkDir
	if workDir == "" {
		workDir = cwd
	}

	p := &Pipeline{
		cfg:     cfg,
		root:    root,
		workDir: workDir,
		log:     logger.NewLogger(logger.WithName("pipeline")),
		limiter: types.NewRateLimiter(cfg.Extract.RateLimit),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.runner == nil {
		p.runner = runner.NewExec(cfg.Kaggle.Binary,
			runner.WithExecDir(workDir),
			runner.WithExecEnv(cfg.Kaggle.Env),
			runner.WithExecLogger(p.log.Named("runner")),
		)
	}

	p.log.Debug("pipeline ready", "storage_root", root, "work_dir", workDir, "mirror", p.mirror != nil)
	return p, nil
}

// StorageRoot returns the absolute storage root.
func (p *Pipeline) StorageRoot() string {
	return p.root
}

// WorkDir is the directory the Kaggle CLI writes downloads into.
func (p *Pipeline) WorkDir() string {
	return p.workDir
}
