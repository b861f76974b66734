// Package storage reads and writes script objects in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// maxObjectSize matches the script loader's file cap (25 MB).
const maxObjectSize = 25 * 1024 * 1024

// objectAPI is the subset of *s3.Client the storage needs.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Storage is an S3-backed script.ObjectStore.
type Storage struct {
	client objectAPI
}

// New wraps an S3 client.
func New(client objectAPI) *Storage {
	return &Storage{client: client}
}

// LoadAWSConfig loads the default AWS configuration with OpenTelemetry
// instrumentation on every SDK call.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return cfg, nil
}

// NewFromConfig creates an S3 Storage from an AWS config.
func NewFromConfig(cfg aws.Config) *Storage {
	return New(s3.NewFromConfig(cfg))
}

// Get downloads an object.
func (s *Storage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("s3://%s/%s exceeds %d bytes", bucket, key, maxObjectSize)
	}
	return data, nil
}

// Put uploads data with the given content type.
func (s *Storage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("upload to s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
