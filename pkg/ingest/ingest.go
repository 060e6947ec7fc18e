// Package ingest loads registration exports from local paths or s3://
// URIs into a cleaned dataset.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
	"github.com/daftar/daftar/pkg/parser"
	"github.com/daftar/daftar/pkg/storage/s3"
)

// Options control one load.
type Options struct {
	Parser parser.Config

	// S3 configures the client used for s3:// URIs.
	S3 s3.Config

	// WrapReader, when set, wraps the raw input stream; used by the CLI
	// to attach a progress bar. size is -1 when unknown.
	WrapReader func(r io.Reader, size int64) io.Reader

	// SourceName overrides the display name; defaults to the base name.
	SourceName string
}

// DefaultOptions returns load defaults.
func DefaultOptions() Options {
	return Options{
		Parser: parser.DefaultConfig(),
		S3:     s3.DefaultConfig(""),
	}
}

// Load reads, parses, and cleans one registration export.
func Load(ctx context.Context, path string, opts Options) (*dataset.Dataset, error) {
	if opts.Parser.Delimiter == 0 {
		opts.Parser = parser.DefaultConfig()
	}

	r, size, name, err := open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var reader io.Reader = r
	if opts.WrapReader != nil {
		reader = opts.WrapReader(r, size)
	}

	res, err := parser.ForPath(path, opts.Parser).Parse(ctx, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "parse input").
			WithContext("path", path)
	}

	if opts.SourceName != "" {
		name = opts.SourceName
	}
	return dataset.New(res.Records, res.SkippedRows, name), nil
}

func open(ctx context.Context, path string, opts Options) (io.ReadCloser, int64, string, error) {
	if s3.IsURI(path) {
		client, err := s3.NewClient(ctx, opts.S3)
		if err != nil {
			return nil, 0, "", err
		}
		r, size, err := client.Fetch(ctx, path)
		if err != nil {
			return nil, 0, "", err
		}
		_, key, _ := s3.ParseURI(path)
		return r, size, filepath.Base(key), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, "", errors.Wrap(err, errors.CodeFileNotFound, "open input").
			WithContext("path", path)
	}

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, size, filepath.Base(path), nil
}
