// Package s3 implements envmeta.DocumentStore on an S3 bucket, for hosts
// that keep their encrypted documents in object storage rather than on the
// local filesystem.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hengadev/envmeta"
)

const contentType = "application/octet-stream"

// s3Client is the slice of the S3 API the store needs (allows mocking).
type s3Client interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Store reads and writes document bytes under one bucket and key prefix.
type Store struct {
	client s3Client
	bucket string
	prefix string
}

// Config holds configuration for the S3 document store.
type Config struct {
	// Bucket is the S3 bucket holding the documents. Required.
	Bucket string

	// Prefix is prepended to every document name. Optional.
	Prefix string

	// Region is the AWS region. If empty, uses AWS_REGION or the AWS
	// config file.
	Region string

	// AWSConfig is an optional pre-configured AWS config.
	// If provided, Region is ignored.
	AWSConfig *aws.Config
}

// New creates an S3-backed document store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket cannot be empty", envmeta.ErrInvalidConfiguration)
	}

	var awsConfig aws.Config
	var err error
	if cfg.AWSConfig != nil {
		awsConfig = *cfg.AWSConfig
	} else {
		opts := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		awsConfig, err = config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load AWS config: %w", envmeta.ErrInvalidConfiguration, err)
		}
	}

	return &Store{
		client: awss3.NewFromConfig(awsConfig),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Load fetches a document's raw bytes.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("document '%s' not found in bucket '%s': %w", name, s.bucket, err)
		}
		return nil, fmt.Errorf("failed to load document '%s': %w", name, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document '%s': %w", name, err)
	}
	return data, nil
}

// Store writes a document's raw bytes, replacing any previous version.
func (s *Store) Store(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to store document '%s': %w", name, err)
	}
	return nil
}
