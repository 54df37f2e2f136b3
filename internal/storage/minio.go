package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
)

// MinioStore serves S3-compatible endpoints (MinIO, Sevalla, R2) through
// minio-go. Listing is resumed with StartAfter, so page tokens are keys.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
	timeout    time.Duration
	pageSize   int
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewMinioStore connects to cfg.Endpoint with static V4 credentials.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, opts ...Option) (*MinioStore, error) {
	if !cfg.HasCredentials() {
		return nil, configError("init", cfg.Bucket, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must both be set"))
	}
	if cfg.Endpoint == "" {
		return nil, configError("init", cfg.Bucket, errors.New("STORAGE_ENDPOINT must be set"))
	}

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	}

	lookup := minio.BucketLookupAuto
	if cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(strings.TrimSuffix(endpoint, "/"), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
		MaxRetries:   cfg.MaxRetries,
	})
	if err != nil {
		return nil, configError("init", cfg.Bucket, fmt.Errorf("failed to create MinIO client: %w", err))
	}

	o := buildOptions(opts)
	store := &MinioStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		timeout:    cfg.RequestTimeout,
		pageSize:   o.pageSize,
		logger:     o.logger.With().Str("driver", config.DriverMinio).Str("bucket", cfg.Bucket).Logger(),
		metrics:    o.metrics,
	}
	if store.publicBase == "" {
		scheme := "https"
		if !secure {
			scheme = "http"
		}
		store.publicBase = fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(endpoint, "/"), cfg.Bucket)
	}

	if cfg.CopyACL != "" {
		store.logger.Warn().Str("acl", cfg.CopyACL).Msg("STORAGE_COPY_ACL is ignored by the minio driver, copies keep the target bucket policy")
	}

	presence, err := store.CheckBucket(ctx, cfg.Bucket)
	switch {
	case presence == PresenceExists:
	case errors.Is(err, ErrAccessDenied):
		store.logger.Warn().Err(err).Msg("access denied to bucket, check credentials and bucket policy")
	case presence == PresenceAbsent:
		store.logger.Warn().Msg("bucket does not exist")
	default:
		store.logger.Warn().Err(err).Msg("could not verify bucket")
	}

	return store, nil
}

// CheckBucket checks whether bucket exists.
func (m *MinioStore) CheckBucket(ctx context.Context, bucket string) (Presence, error) {
	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	ok, err := m.client.BucketExists(ctx, bucket)
	m.metrics.ObserveStorageOp("head_bucket", err, time.Since(start))
	switch {
	case err != nil:
		return PresenceUnknown, &Error{Op: "head_bucket", Bucket: bucket, Code: minioErrorCode(err), Err: err}
	case ok:
		return PresenceExists, nil
	default:
		return PresenceAbsent, nil
	}
}

func (m *MinioStore) Bucket() string { return m.bucket }

func (m *MinioStore) URLFor(key string) string {
	return publicURL(m.publicBase, m.bucket, key)
}

func (m *MinioStore) Upload(ctx context.Context, body io.ReadSeeker, key string) UploadOutcome {
	size, err := body.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = body.Seek(0, io.SeekStart)
	}
	if err != nil {
		serr := objectError("put", m.bucket, key, "", err)
		m.logger.Error().Err(serr).Str("key", key).Msg("failed to rewind upload body")
		return UploadFailed(key, serr.Error())
	}

	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	_, err = m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: ContentTypeFor(key),
	})
	m.metrics.ObserveStorageOp("put", err, time.Since(start))
	if err != nil {
		serr := objectError("put", m.bucket, key, minioErrorCode(err), err)
		m.logger.Error().Err(serr).Str("key", key).Str("code", serr.Code).Msg("upload failed")
		return UploadFailed(key, serr.Error())
	}

	m.logger.Info().Str("key", key).Int64("size", size).Msg("uploaded object")
	return Uploaded(key)
}

func (m *MinioStore) Delete(ctx context.Context, key string) bool {
	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	m.metrics.ObserveStorageOp("delete", err, time.Since(start))
	if err != nil {
		serr := objectError("delete", m.bucket, key, minioErrorCode(err), err)
		m.logger.Error().Err(serr).Str("key", key).Str("code", serr.Code).Msg("delete failed")
		return false
	}
	return true
}

func (m *MinioStore) Exists(ctx context.Context, key string) bool {
	presence, _ := m.Stat(ctx, key)
	return presence == PresenceExists
}

func (m *MinioStore) Stat(ctx context.Context, key string) (Presence, error) {
	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	m.metrics.ObserveStorageOp("head", err, time.Since(start))
	if err == nil {
		return PresenceExists, nil
	}

	serr := objectError("head", m.bucket, key, minioErrorCode(err), err)
	if errors.Is(serr, ErrNotFound) {
		return PresenceAbsent, nil
	}
	m.logger.Warn().Err(serr).Str("key", key).Str("code", serr.Code).Msg("existence check failed")
	return PresenceUnknown, serr
}

// ListPage reads at most one page of keys after continuationToken. The
// returned token is the last key of the page.
func (m *MinioStore) ListPage(ctx context.Context, bucket, continuationToken string) (*ObjectPage, error) {
	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	objects := m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Recursive:  true,
		StartAfter: continuationToken,
		MaxKeys:    m.pageSize,
	})

	page := &ObjectPage{Keys: make([]string, 0, m.pageSize)}
	var listErr error
	for obj := range objects {
		if obj.Err != nil {
			listErr = obj.Err
			break
		}
		page.Keys = append(page.Keys, obj.Key)
		if len(page.Keys) == m.pageSize {
			break
		}
	}
	// The listing goroutine reports the cancellation on the channel, so it
	// must be drained for the goroutine to exit.
	cancel()
	for range objects {
	}
	m.metrics.ObserveStorageOp("list", listErr, time.Since(start))

	if listErr != nil {
		return nil, listingError(bucket, minioErrorCode(listErr), listErr)
	}
	if len(page.Keys) == m.pageSize {
		page.NextToken = page.Keys[len(page.Keys)-1]
	}
	return page, nil
}

func (m *MinioStore) CopyObject(ctx context.Context, srcBucket, dstBucket, key string) error {
	ctx, cancel := withRequestTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: key},
		minio.CopySrcOptions{Bucket: srcBucket, Object: key},
	)
	m.metrics.ObserveStorageOp("copy", err, time.Since(start))
	if err != nil {
		return objectError("copy", dstBucket, key, minioErrorCode(err), err)
	}
	return nil
}

func minioErrorCode(err error) string {
	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		return resp.Code
	}
	if resp.StatusCode != 0 {
		return strconv.Itoa(resp.StatusCode)
	}
	return ""
}
