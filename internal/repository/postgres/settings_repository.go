package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/repository"
)

type settingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.StorageSettings, error) {
	var s domain.StorageSettings
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT bucket_name, backup_bucket, updated_at
		FROM storage_settings
		WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get storage settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) Save(ctx context.Context, s *domain.StorageSettings) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO storage_settings (id, bucket_name, backup_bucket, updated_at)
			VALUES (1, $1, $2, NOW())
			ON CONFLICT (id)
			DO UPDATE SET
				bucket_name = EXCLUDED.bucket_name,
				backup_bucket = EXCLUDED.backup_bucket,
				updated_at = NOW()
			RETURNING updated_at
		`
		if err := tx.QueryRowContext(ctx, query, s.BucketName, s.BackupBucket).Scan(&s.UpdatedAt); err != nil {
			return fmt.Errorf("failed to save storage settings: %w", err)
		}
		return nil
	})
}
