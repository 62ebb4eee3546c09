// Package mirror keeps copies of downloaded archives in S3, so a fresh
// storage root can be filled without going through the Kaggle CLI.
package mirror

import (
	"context"
	"fmt"
	"path"
	"strings"

	"kagglesync/internal/core/logger"
	"kagglesync/internal/core/types"
	"kagglesync/internal/transport"
)

// Mirror stores and retrieves cached archives by kind and slug.
type Mirror interface {
	// Get downloads the archive for slug to dest. found is false when the
	// mirror has no copy.
	Get(ctx context.Context, kind types.Kind, slug, dest string) (found bool, err error)
	// Put uploads the archive at src.
	Put(ctx context.Context, kind types.Kind, slug, src string) error
}

// Store is the object storage an S3Mirror talks to. *transport.S3Transfer
// satisfies it.
type Store interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	DownloadFile(ctx context.Context, bucket, key, destPath string) (types.Bytes, error)
	UploadFile(ctx context.Context, srcPath, bucket, key string, callback types.RWCallback) error
}

// Reporter receives upload progress.
type Reporter interface {
	Start(name string, size int64)
	Add(name string, n int64)
	Done(name string)
}

type S3MirrorOption func(*S3Mirror)

func WithLogger(log *logger.Logger) S3MirrorOption {
	return func(m *S3Mirror) {
		m.logger = log
	}
}

func WithReporter(reporter Reporter) S3MirrorOption {
	return func(m *S3Mirror) {
		m.reporter = reporter
	}
}

// S3Mirror lays archives out as <prefix>/<kind>/<slug>.zip in one bucket.
type S3Mirror struct {
	store    Store
	bucket   string
	prefix   string
	logger   *logger.Logger
	reporter Reporter
}

// NewS3Mirror creates a mirror on top of store.
func NewS3Mirror(store Store, bucket, prefix string, opts ...S3MirrorOption) *S3Mirror {
	m := &S3Mirror{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.NewLogger(logger.WithName("mirror")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromConfig builds an S3 mirror from configuration. It returns nil when the
// mirror is disabled.
func FromConfig(cfg *types.MirrorConfig, limiter *types.RateLimiter, opts ...S3MirrorOption) (*S3Mirror, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var httpOpts []transport.HTTPClientOption
	if cfg.Timeout > 0 {
		httpOpts = append(httpOpts, transport.HTTPWithTimeout(cfg.Timeout))
	}
	store, err := transport.NewS3Transfer(transport.S3Options{
		Region:     cfg.Region,
		Profile:    cfg.Profile,
		Endpoint:   cfg.Endpoint,
		HTTPClient: transport.NewHTTPClient(httpOpts...),
		Limiter:    limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	return NewS3Mirror(store, cfg.Bucket, cfg.Prefix, opts...), nil
}

// Key returns the object key for slug.
func (m *S3Mirror) Key(kind types.Kind, slug string) string {
	return path.Join(m.prefix, kind.String(), slug+".zip")
}

func (m *S3Mirror) Get(ctx context.Context, kind types.Kind, slug, dest string) (bool, error) {
	key := m.Key(kind, slug)

	ok, err := m.store.Exists(ctx, m.bucket, key)
	if err != nil || !ok {
		return false, err
	}

	n, err := m.store.DownloadFile(ctx, m.bucket, key, dest)
	if err != nil {
		return false, err
	}
	m.logger.Info("archive restored from mirror", "slug", slug, "bucket", m.bucket, "key", key, "size", n)
	return true, nil
}

func (m *S3Mirror) Put(ctx context.Context, kind types.Kind, slug, src string) error {
	key := m.Key(kind, slug)

	var callback types.RWCallback
	if m.reporter != nil {
		name := path.Base(key)
		m.reporter.Start(name, -1)
		defer m.reporter.Done(name)
		callback = func(n int64) { m.reporter.Add(name, n) }
	}

	if err := m.store.UploadFile(ctx, src, m.bucket, key, callback); err != nil {
		return err
	}
	m.logger.Info("archive uploaded to mirror", "slug", slug, "bucket", m.bucket, "key", key)
	return nil
}
