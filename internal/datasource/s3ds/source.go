// Package s3ds reads raw entity files from AWS S3 or an S3-compatible store
// such as MinIO.
package s3ds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound is returned by Open when the object does not exist.
var ErrNotFound = errors.New("s3 object not found")

// Config locates one object. Credentials come from the default AWS chain
// (environment, shared config, instance role).
type Config struct {
	Bucket       string
	Key          string
	Region       string // default us-east-1
	Endpoint     string // optional, e.g. http://minio:9000
	UsePathStyle bool

	// HTTPClient overrides the SDK HTTP client.
	HTTPClient *http.Client
}

// Source downloads one object.
type Source struct {
	client *s3.Client
	bucket string
	key    string
}

// New builds an S3 client from cfg. Extra load options are passed to
// config.LoadDefaultConfig.
func New(ctx context.Context, cfg Config, loadOpts ...func(*config.LoadOptions) error) (*Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3ds: bucket and key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := append([]func(*config.LoadOptions) error{config.WithRegion(region)}, loadOpts...)
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3ds: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return NewFromClient(client, cfg.Bucket, cfg.Key), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *s3.Client, bucket, key string) *Source {
	return &Source{client: client, bucket: bucket, key: key}
}

// Name returns the s3:// URI of the object.
func (s *Source) Name() string { return "s3://" + s.bucket + "/" + s.key }

// Open streams the object body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3ds: %s: %w", s.Name(), ErrNotFound)
		}
		return nil, fmt.Errorf("s3ds: get %s: %w", s.Name(), err)
	}
	return out.Body, nil
}
