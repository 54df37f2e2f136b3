package service

import (
	"context"
	"errors"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/repository"
)

// SettingsService manages the admin bucket configuration. Until an admin
// saves it, the values from the environment apply.
type SettingsService struct {
	repo     repository.SettingsRepository
	defaults domain.StorageSettings
}

func NewSettingsService(repo repository.SettingsRepository, storageCfg config.StorageConfig) *SettingsService {
	return &SettingsService{
		repo: repo,
		defaults: domain.StorageSettings{
			BucketName:   storageCfg.Bucket,
			BackupBucket: storageCfg.BackupBucket,
		},
	}
}

func (s *SettingsService) Get(ctx context.Context) (*domain.StorageSettings, error) {
	settings, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		defaults := s.defaults
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Update validates and stores new bucket names. Names are lowercased; the
// backup bucket may be empty but must otherwise differ from the primary.
func (s *SettingsService) Update(ctx context.Context, bucketName, backupBucket string) (*domain.StorageSettings, error) {
	bucketName = config.NormalizeBucketName(bucketName)
	backupBucket = config.NormalizeBucketName(backupBucket)

	if err := config.ValidateBucketName(bucketName); err != nil {
		return nil, &FieldError{Field: "bucket_name", Message: err.Error()}
	}
	if backupBucket != "" {
		if err := config.ValidateBucketPair(bucketName, backupBucket); err != nil {
			return nil, &FieldError{Field: "backup_bucket", Message: err.Error()}
		}
	}

	settings := &domain.StorageSettings{BucketName: bucketName, BackupBucket: backupBucket}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
