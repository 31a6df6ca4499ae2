// Package attachments manages the remote objects referenced by task
// documents. Uploads happen client-side; the server only deletes.
package attachments

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/minio/minio-go/v7"
	miniocredentials "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/yukikurage/taskdesk-api/internal/config"
)

// Remover deletes one remote object by its storage key.
type Remover interface {
	Remove(ctx context.Context, key string) error
}

// NewRemover builds the Remover for the configured provider.
func NewRemover(ctx context.Context, cfg config.StorageConfig) (Remover, error) {
	switch cfg.Provider {
	case "cloudinary":
		return NewCloudinaryRemover(cfg)
	case "s3":
		return NewS3Remover(ctx, cfg)
	case "minio":
		return NewMinioRemover(cfg)
	case "none", "":
		return NoopRemover{}, nil
	}
	return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
}

// NoopRemover is used when no provider is configured.
type NoopRemover struct{}

// Remove does nothing.
func (NoopRemover) Remove(context.Context, string) error { return nil }

// CloudinaryRemover destroys Cloudinary assets by public id.
type CloudinaryRemover struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryRemover creates a CloudinaryRemover from API credentials.
func NewCloudinaryRemover(cfg config.StorageConfig) (*CloudinaryRemover, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryRemover{cld: cld}, nil
}

// Remove destroys the asset. An asset that is already gone is not an error.
func (r *CloudinaryRemover) Remove(ctx context.Context, key string) error {
	result, err := r.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to destroy asset: %s", result.Error.Message)
	}
	switch result.Result {
	case "ok", "not found":
		return nil
	}
	return fmt.Errorf("failed to destroy asset: unexpected result %q", result.Result)
}

// S3Remover deletes objects from an S3 bucket or an S3-compatible endpoint.
type S3Remover struct {
	client *s3.Client
	bucket string
}

// NewS3Remover creates an S3Remover with static credentials.
func NewS3Remover(ctx context.Context, cfg config.StorageConfig) (*S3Remover, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Remover{client: client, bucket: cfg.Bucket}, nil
}

// Remove deletes the object stored under key.
func (r *S3Remover) Remove(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// MinioRemover deletes objects from a MinIO bucket.
type MinioRemover struct {
	client *minio.Client
	bucket string
}

// NewMinioRemover creates a MinioRemover with static credentials.
func NewMinioRemover(cfg config.StorageConfig) (*MinioRemover, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocredentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioRemover{client: client, bucket: cfg.Bucket}, nil
}

// Remove deletes the object stored under key.
func (r *MinioRemover) Remove(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}
