package storage

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-grading/internal/config"
)

// Open builds the blob store selected by cfg.BlobDriver.
func Open(ctx context.Context, cfg config.Config) (BlobStore, error) {
	switch cfg.BlobDriver {
	case "", "fs":
		return NewFSStore(cfg.BlobBasePath)
	case "s3", "minio":
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver: %s", cfg.BlobDriver)
	}
}
