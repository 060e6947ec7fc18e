// Package s3 fetches registration exports from S3 so `daftar analyze`
// accepts s3:// URIs alongside local paths.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/daftar/daftar/pkg/errors"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "ap-southeast-1")
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// DownloadTimeout bounds a single object fetch
	DownloadTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(region string) Config {
	return Config{
		Region:          region,
		DownloadTimeout: 5 * time.Minute,
	}
}

// Client fetches objects from S3.
type Client struct {
	cfg Config
	s3  *s3.Client
}

// NewClient builds an S3 client from the config, falling back to the
// default AWS credential chain when no static keys are set.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetch, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{cfg: cfg, s3: client}, nil
}

// IsURI reports whether a path is an s3:// URI.
func IsURI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseURI splits "s3://bucket/key" into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri {
		return "", "", errors.New(errors.CodeSourceFetch, "not an s3 uri").
			WithContext("uri", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New(errors.CodeSourceFetch, "s3 uri needs bucket and key").
			WithContext("uri", uri)
	}
	return parts[0], parts[1], nil
}

// Fetch opens an object for reading. The caller must close the reader.
func (c *Client) Fetch(ctx context.Context, uri string) (io.ReadCloser, int64, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, 0, err
	}

	if c.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DownloadTimeout)
		// The reader outlives this call; tie cancellation to close.
		out, size, err := c.getObject(ctx, bucket, key)
		if err != nil {
			cancel()
			return nil, 0, err
		}
		return &cancelReadCloser{ReadCloser: out, cancel: cancel}, size, nil
	}

	return c.fetchNoTimeout(ctx, bucket, key)
}

func (c *Client) fetchNoTimeout(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	return c.getObject(ctx, bucket, key)
}

func (c *Client) getObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeSourceFetch,
			fmt.Sprintf("get s3://%s/%s", bucket, key))
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
