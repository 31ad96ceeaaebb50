// Package s3 implements the S3-compatible blob store backend. It supports AWS
// S3, MinIO, DigitalOcean Spaces, and other S3-compatible services via a
// configurable endpoint. Each logical bucket maps to its own S3 bucket so
// version files and gallery images stay in separate namespaces.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/storage"
)

func init() {
	// Register S3 storage backend
	storage.Register("s3", func(cfg *appconfig.Config) (storage.Storage, error) {
		return New(&cfg.Storage.S3)
	})
}

// S3Storage implements the Storage interface for S3-compatible storage
type S3Storage struct {
	client  *s3.Client
	buckets map[storage.Bucket]string
}

// New creates a new S3-compatible storage backend.
//
// When access keys are configured they are used as static credentials;
// otherwise the AWS default credential chain applies (env vars, shared
// config, IAM role, IMDS).
func New(cfg *appconfig.S3StorageConfig) (*S3Storage, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.ProjectsBucket == "" || cfg.GalleryBucket == "" {
		return nil, fmt.Errorf("s3 projects_bucket and gallery_bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible services generally require path-style addressing
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		buckets: map[storage.Bucket]string{
			storage.BucketProjects: cfg.ProjectsBucket,
			storage.BucketGallery:  cfg.GalleryBucket,
		},
	}, nil
}

func (s *S3Storage) bucketName(bucket storage.Bucket) (string, error) {
	name, ok := s.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("unknown bucket: %s", bucket)
	}
	return name, nil
}

// Put stores a blob in S3
func (s *S3Storage) Put(ctx context.Context, bucket storage.Bucket, key string, reader io.Reader, size int64) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(name),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// Get retrieves a blob from S3
func (s *S3Storage) Get(ctx context.Context, bucket storage.Bucket, key string) (io.ReadCloser, error) {
	name, err := s.bucketName(bucket)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return result.Body, nil
}

// Delete removes a blob from S3. S3 DeleteObject is already a no-op for
// missing keys, which matches the interface contract.
func (s *S3Storage) Delete(ctx context.Context, bucket storage.Bucket, key string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// Exists checks whether a blob is stored under the key
func (s *S3Storage) Exists(ctx context.Context, bucket storage.Bucket, key string) (bool, error) {
	name, err := s.bucketName(bucket)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check S3 object: %w", err)
	}

	return true, nil
}
