package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr error
	}{
		{name: "dots and hyphens", bucket: "my-bucket.01"},
		{name: "minimum length", bucket: "abc"},
		{name: "maximum length", bucket: "a123456789b123456789c123456789d123456789e123456789f123456789xyz"},
		{name: "uppercase letters", bucket: "MyBucket"},
		{name: "too short", bucket: "ab", wantErr: ErrBucketNameLength},
		{name: "empty", bucket: "", wantErr: ErrBucketNameLength},
		{name: "too long", bucket: "a123456789b123456789c123456789d123456789e123456789f123456789wxyz", wantErr: ErrBucketNameLength},
		{name: "underscore", bucket: "My_Bucket", wantErr: ErrBucketNameCharset},
		{name: "space", bucket: "my bucket", wantErr: ErrBucketNameCharset},
		{name: "slash", bucket: "my/bucket", wantErr: ErrBucketNameCharset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateBucketPair(t *testing.T) {
	assert.NoError(t, ValidateBucketPair("catalog-images", "catalog-backup"))
	assert.ErrorIs(t, ValidateBucketPair("catalog-images", "catalog-images"), ErrSameBuckets)
	assert.ErrorIs(t, ValidateBucketPair("Catalog-Images", "catalog-images"), ErrSameBuckets)
	assert.ErrorIs(t, ValidateBucketPair("catalog-images", "ab"), ErrBucketNameLength)
	assert.ErrorIs(t, ValidateBucketPair("bad_name", "catalog-backup"), ErrBucketNameCharset)
}

func TestNormalizeBucketName(t *testing.T) {
	assert.Equal(t, "my-bucket.01", NormalizeBucketName("  My-Bucket.01 "))
	assert.Equal(t, "", NormalizeBucketName("   "))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AWS_S3_BUCKET", "Catalog-Images")
	t.Setenv("AWS_S3_BACKUP_BUCKET", "")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REPLICATION_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog-images", cfg.Storage.Bucket)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 1, cfg.Backup.Workers)
	assert.Equal(t, 1000, cfg.Backup.PageSize)
	assert.Positive(t, cfg.Storage.RequestTimeout)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "same primary and backup",
			env:  map[string]string{"AWS_S3_BUCKET": "catalog", "AWS_S3_BACKUP_BUCKET": "CATALOG"},
		},
		{
			name: "invalid backup name",
			env:  map[string]string{"AWS_S3_BUCKET": "catalog", "AWS_S3_BACKUP_BUCKET": "back_up"},
		},
		{
			name: "unknown driver",
			env:  map[string]string{"AWS_S3_BUCKET": "catalog", "STORAGE_DRIVER": "ftp"},
		},
		{
			name: "minio without endpoint",
			env:  map[string]string{"AWS_S3_BUCKET": "catalog", "STORAGE_DRIVER": "minio", "STORAGE_ENDPOINT": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AWS_S3_BACKUP_BUCKET", "")
			t.Setenv("STORAGE_DRIVER", "s3")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "catalog", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=catalog sslmode=disable", db.DSN())

	db.URL = "postgres://u:p@db:5432/catalog"
	assert.Equal(t, "postgres://u:p@db:5432/catalog", db.DSN())
}
