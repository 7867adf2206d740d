// Package media uploads user images (avatars, cover photos) to
// S3-compatible object storage and hands back public URLs. The auth core
// never sees anything but the resulting URL string.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is what the handlers depend on; tests substitute fakes.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Storage implements Uploader against S3 or MinIO.
type Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// Options configures the storage connection. Endpoint points at the
// S3-compatible server (e.g. a local MinIO); PublicURL is the base under
// which uploaded objects are reachable by browsers.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

func NewStorage(ctx context.Context, opts Options) (*Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true // MinIO serves buckets by path, not vhost
	})
	return &Storage{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Upload stores the object under key and returns its public URL.
func (s *Storage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}
