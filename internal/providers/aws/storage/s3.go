// Package awsstorage reads scan inputs from Amazon S3.
package awsstorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/iacguard/internal/source"
)

// defaultConcurrency bounds parallel GetObject calls.
const defaultConcurrency = 8

// S3Source reads scan inputs from s3://bucket/prefix. Only keys that look
// like IaC files are fetched; everything is read into memory up front.
type S3Source struct {
	client      common.S3Client
	bucket      string
	prefix      string
	concurrency int
	logger      *zap.Logger
}

// ParseURI splits "s3://bucket/some/prefix" into bucket and prefix.
func ParseURI(uri string) (bucket, prefix string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q; want s3://bucket[/prefix]", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// NewS3Source returns a source for uri read through client.
func NewS3Source(client common.S3Client, uri string, logger *zap.Logger) (*S3Source, error) {
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Source{
		client:      client,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: defaultConcurrency,
		logger:      logger,
	}, nil
}

// List returns the IaC object keys under the prefix, sorted. Objects above
// source.MaxFileSize are skipped.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	p := s3svc.NewListObjectsV2Paginator(s.client, &s3svc.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || !source.IsIaCFile(key) {
				continue
			}
			if aws.ToInt64(obj.Size) > source.MaxFileSize {
				s.logger.Warn("skipping large object",
					zap.String("key", key),
					zap.Int64("size", aws.ToInt64(obj.Size)),
				)
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Load lists and downloads every IaC object under the prefix. Files are
// named by their full s3:// URI. Any failed download fails the whole load.
func (s *S3Source) Load(ctx context.Context) ([]models.SourceFile, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	files := make([]models.SourceFile, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			data, err := s.get(gctx, key)
			if err != nil {
				return err
			}
			files[i] = models.SourceFile{Path: fmt.Sprintf("s3://%s/%s", s.bucket, key), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("loaded s3 inputs",
		zap.String("bucket", s.bucket),
		zap.String("prefix", s.prefix),
		zap.Int("files", len(files)),
	)
	return files, nil
}

func (s *S3Source) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3svc.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, source.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	if len(data) > source.MaxFileSize {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, source.ErrTooLarge)
	}
	return data, nil
}
