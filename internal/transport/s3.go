package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"kagglesync/internal/core/types"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Options configures the AWS session behind an S3Transfer.
type S3Options struct {
	Region  string
	Profile string

	// Endpoint and static credentials target S3-compatible stores
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	HTTPClient *http.Client
	Limiter    *types.RateLimiter
}

// S3Transfer moves whole objects between S3 and local files
type S3Transfer struct {
	session  *session.Session
	s3Client *s3.S3
	limiter  *types.RateLimiter
}

// NewS3Transfer creates a session from opts and a transfer on top of it.
func NewS3Transfer(opts S3Options) (*S3Transfer, error) {
	sessionConfig := aws.Config{}
	if opts.Region != "" {
		sessionConfig.Region = aws.String(opts.Region)
	}
	if opts.Endpoint != "" {
		sessionConfig.Endpoint = aws.String(opts.Endpoint)
		sessionConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKeyID != "" {
		sessionConfig.Credentials = credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, "")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	sessionConfig.HTTPClient = httpClient

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           opts.Profile,
		Config:            sessionConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = types.UnlimitedRateLimiter()
	}

	return &S3Transfer{
		session:  sess,
		s3Client: s3.New(sess),
		limiter:  limiter,
	}, nil
}

// Exists reports whether bucket/key exists.
func (t *S3Transfer) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := t.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
}

// DownloadFile writes bucket/key to destPath. The object is downloaded next
// to destPath and renamed into place, so destPath never holds a partial file.
func (t *S3Transfer) DownloadFile(ctx context.Context, bucket, key, destPath string) (types.Bytes, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	downloader := s3manager.NewDownloader(t.session, func(d *s3manager.Downloader) {
		d.Concurrency = 1
	})
	n, err := downloader.DownloadWithContext(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return 0, err
	}
	return types.Bytes(n), nil
}

// UploadFile streams srcPath to bucket/key through the rate limiter,
// reporting bytes read to callback when it is not nil.
func (t *S3Transfer) UploadFile(ctx context.Context, srcPath, bucket, key string, callback types.RWCallback) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := []types.RWOption{
		types.RWWithIOReader(f),
		types.RWWithLimiter(t.limiter),
	}
	if callback != nil {
		opts = append(opts, types.RWWithCallback(callback))
	}
	body := types.NewReaderWriter(opts...).Reader(ctx)

	uploader := s3manager.NewUploader(t.session)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
