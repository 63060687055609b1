package dataset

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"trainhub/pkg/models"
)

// S3Backend is a stub: it satisfies Backend so the rest of the
// service can be pointed at object storage later, but it does not
// talk to S3 yet. Every call logs a warning and returns a pseudo-path
// or an empty result.
type S3Backend struct {
	bucket string
	region string
	log    *zap.Logger
}

func NewS3Backend(bucket string, log *zap.Logger) *S3Backend {
	region := os.Getenv("AWS_DEFAULT_REGION")
	if region == "" {
		region = "us-east-1"
	}
	log.Warn("s3 backend is stubbed and not yet implemented", zap.String("bucket", bucket))
	return &S3Backend{bucket: bucket, region: region, log: log}
}

func (b *S3Backend) SaveImage(ctx context.Context, imageBytes []byte, relPath string) (string, error) {
	b.log.Warn("s3 SaveImage not implemented", zap.String("path", relPath))
	return fmt.Sprintf("s3://%s/%s", b.bucket, relPath), nil
}

func (b *S3Backend) SaveMetadata(ctx context.Context, sample models.Sample, relPath string) (string, error) {
	b.log.Warn("s3 SaveMetadata not implemented", zap.String("path", relPath))
	return fmt.Sprintf("s3://%s/%s", b.bucket, relPath), nil
}

func (b *S3Backend) ListImages(ctx context.Context, prefix string) ([]string, error) {
	b.log.Warn("s3 ListImages not implemented", zap.String("prefix", prefix))
	return nil, nil
}

func (b *S3Backend) PathExists(ctx context.Context, relPath string) bool {
	b.log.Warn("s3 PathExists not implemented", zap.String("path", relPath))
	return false
}
