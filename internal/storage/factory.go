package storage

import (
	"context"
	"fmt"

	"github.com/andresuchdata/catalog-s3/internal/config"
)

// New builds the driver selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, opts ...Option) (Backend, error) {
	switch cfg.Driver {
	case config.DriverS3, "":
		return NewS3Store(ctx, cfg, opts...)
	case config.DriverMinio:
		return NewMinioStore(ctx, cfg, opts...)
	case config.DriverMemory:
		return NewMemoryStore(cfg, opts...), nil
	default:
		return nil, configError("init", cfg.Bucket, fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
}
