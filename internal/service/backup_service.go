package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/catalog-s3/internal/cache"
	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/replication"
	"github.com/andresuchdata/catalog-s3/internal/storage"
)

// BackupService copies the primary bucket into the backup bucket named in
// the storage settings. Only one run is allowed at a time.
type BackupService struct {
	settings   *SettingsService
	replicator *replication.Replicator
	checker    storage.BucketChecker
	lock       cache.BackupLock
}

func NewBackupService(settings *SettingsService, replicator *replication.Replicator, checker storage.BucketChecker, lock cache.BackupLock) *BackupService {
	if lock == nil {
		lock = cache.NewLocalBackupLock()
	}
	return &BackupService{
		settings:   settings,
		replicator: replicator,
		checker:    checker,
		lock:       lock,
	}
}

// Run replicates using the configured buckets. The returned result is never
// nil; err classifies failures for the caller.
func (s *BackupService) Run(ctx context.Context) (*domain.BackupResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		result := failedResult("", "", time.Now(), fmt.Errorf("could not load storage settings: %w", err))
		return result, err
	}
	return s.RunBuckets(ctx, settings.BucketName, settings.BackupBucket)
}

// RunBuckets replicates source into target. Both names must pass bucket
// validation; nothing is listed otherwise.
func (s *BackupService) RunBuckets(ctx context.Context, source, target string) (*domain.BackupResult, error) {
	started := time.Now()

	if target == "" {
		err := &storage.Error{Op: "backup", Bucket: source, Kind: storage.ErrConfiguration, Err: errors.New("no backup bucket configured")}
		return failedResult(source, target, started, err), err
	}
	if err := config.ValidateBucketPair(source, target); err != nil {
		err = &storage.Error{Op: "backup", Bucket: source, Kind: storage.ErrConfiguration, Err: err}
		return failedResult(source, target, started, err), err
	}

	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return failedResult(source, target, started, err), fmt.Errorf("acquire backup lock: %w", err)
	}
	if !ok {
		return failedResult(source, target, started, ErrBackupInProgress), ErrBackupInProgress
	}
	defer release(context.WithoutCancel(ctx))

	report, err := s.replicator.Run(ctx, source, target)
	if err != nil {
		result := failedResult(source, target, started, err)
		result.Results = report
		log.Error().Err(err).Str("source", source).Str("target", target).Msg("backup: replication failed")
		return result, err
	}

	result := &domain.BackupResult{
		Source:     source,
		Target:     target,
		Results:    report,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if len(report.FailedItems) > 0 {
		result.Status = domain.BackupCompletedWithWarnings
		result.Message = fmt.Sprintf("Backup completed with warnings: %d/%d files copied", report.SuccessCount, report.TotalProcessed)
	} else {
		result.Status = domain.BackupCompleted
		result.Message = fmt.Sprintf("Backup completed successfully: %d files copied", report.SuccessCount)
	}

	log.Info().
		Str("source", source).
		Str("target", target).
		Str("status", result.Status).
		Int("success_count", report.SuccessCount).
		Int("total_processed", report.TotalProcessed).
		Msg("backup: finished")
	return result, nil
}

// CheckBuckets checks the primary and backup buckets from the settings.
func (s *BackupService) CheckBuckets(ctx context.Context) ([]domain.BucketHealth, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	checks := []domain.BucketHealth{{Role: "primary", Bucket: settings.BucketName}}
	if settings.BackupBucket != "" {
		checks = append(checks, domain.BucketHealth{Role: "backup", Bucket: settings.BackupBucket})
	}

	for i := range checks {
		presence, err := s.checker.CheckBucket(ctx, checks[i].Bucket)
		checks[i].Presence = presence.String()
		if err != nil {
			checks[i].Error = err.Error()
		}
	}
	return checks, nil
}

func failedResult(source, target string, started time.Time, err error) *domain.BackupResult {
	return &domain.BackupResult{
		Status:     domain.BackupFailed,
		Message:    fmt.Sprintf("Backup failed: %v", err),
		Source:     source,
		Target:     target,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}
