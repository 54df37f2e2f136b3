package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
)

// S3API is the subset of the AWS S3 client used by S3Store.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store talks to Amazon S3 through aws-sdk-go-v2.
type S3Store struct {
	client     S3API
	bucket     string
	publicBase string
	copyACL    string
	timeout    time.Duration
	pageSize   int32
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewS3Store builds an S3 client from static credentials. Missing credentials
// fail with ErrConfiguration. An unreachable bucket only produces a warning.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, opts ...Option) (*S3Store, error) {
	if !cfg.HasCredentials() {
		return nil, configError("init", cfg.Bucket, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must both be set"))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	}
	if cfg.MaxRetries > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, configError("init", cfg.Bucket, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
		}
	})

	return NewS3StoreWithClient(ctx, client, cfg, opts...), nil
}

// NewS3StoreWithClient wraps an existing S3API implementation and checks the
// configured bucket.
func NewS3StoreWithClient(ctx context.Context, client S3API, cfg config.StorageConfig, opts ...Option) *S3Store {
	o := buildOptions(opts)
	store := &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		copyACL:    cfg.CopyACL,
		timeout:    cfg.RequestTimeout,
		pageSize:   int32(o.pageSize),
		logger:     o.logger.With().Str("driver", config.DriverS3).Str("bucket", cfg.Bucket).Logger(),
		metrics:    o.metrics,
	}

	store.warnIfUnreachable(ctx)
	return store
}

func (s *S3Store) warnIfUnreachable(ctx context.Context) {
	presence, err := s.CheckBucket(ctx, s.bucket)
	switch {
	case presence == PresenceExists:
		s.logger.Debug().Msg("bucket reachable")
	case errors.Is(err, ErrAccessDenied):
		s.logger.Warn().Err(err).Msg("access denied to bucket, check credentials and bucket policy")
	case presence == PresenceAbsent:
		s.logger.Warn().Msg("bucket does not exist")
	default:
		s.logger.Warn().Err(err).Msg("could not verify bucket")
	}
}

// CheckBucket issues a head-bucket request for bucket.
func (s *S3Store) CheckBucket(ctx context.Context, bucket string) (Presence, error) {
	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	s.metrics.ObserveStorageOp("head_bucket", err, time.Since(start))
	if err == nil {
		return PresenceExists, nil
	}

	serr := &Error{Op: "head_bucket", Bucket: bucket, Code: awsErrorCode(err), Err: err}
	if errors.Is(serr, ErrNotFound) {
		return PresenceAbsent, nil
	}
	return PresenceUnknown, serr
}

// Bucket returns the configured bucket.
func (s *S3Store) Bucket() string { return s.bucket }

// URLFor returns the public URL of key.
func (s *S3Store) URLFor(key string) string {
	return publicURL(s.publicBase, s.bucket, key)
}

// Upload stores body under key with a content type derived from the key.
func (s *S3Store) Upload(ctx context.Context, body io.ReadSeeker, key string) UploadOutcome {
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		serr := objectError("put", s.bucket, key, "", err)
		s.logger.Error().Err(serr).Str("key", key).Msg("failed to rewind upload body")
		return UploadFailed(key, serr.Error())
	}

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentTypeFor(key)),
	})
	s.metrics.ObserveStorageOp("put", err, time.Since(start))
	if err != nil {
		serr := objectError("put", s.bucket, key, awsErrorCode(err), err)
		s.logger.Error().Err(serr).Str("key", key).Str("code", serr.Code).Msg("upload failed")
		return UploadFailed(key, serr.Error())
	}

	s.logger.Info().Str("key", key).Msg("uploaded object")
	return Uploaded(key)
}

// Delete removes key. Backend failures are logged and reported as false.
func (s *S3Store) Delete(ctx context.Context, key string) bool {
	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	s.metrics.ObserveStorageOp("delete", err, time.Since(start))
	if err != nil {
		serr := objectError("delete", s.bucket, key, awsErrorCode(err), err)
		s.logger.Error().Err(serr).Str("key", key).Str("code", serr.Code).Msg("delete failed")
		return false
	}
	return true
}

// Exists reports whether key was positively found. Failed checks count as
// not found; use Stat to tell them apart.
func (s *S3Store) Exists(ctx context.Context, key string) bool {
	presence, _ := s.Stat(ctx, key)
	return presence == PresenceExists
}

// Stat issues a head-object request for key.
func (s *S3Store) Stat(ctx context.Context, key string) (Presence, error) {
	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	s.metrics.ObserveStorageOp("head", err, time.Since(start))
	if err == nil {
		return PresenceExists, nil
	}

	serr := objectError("head", s.bucket, key, awsErrorCode(err), err)
	if errors.Is(serr, ErrNotFound) {
		return PresenceAbsent, nil
	}
	s.logger.Warn().Err(serr).Str("key", key).Str("code", serr.Code).Msg("existence check failed")
	return PresenceUnknown, serr
}

// ListPage returns one page of keys from bucket.
func (s *S3Store) ListPage(ctx context.Context, bucket, continuationToken string) (*ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.client.ListObjectsV2(ctx, input)
	s.metrics.ObserveStorageOp("list", err, time.Since(start))
	if err != nil {
		return nil, listingError(bucket, awsErrorCode(err), err)
	}

	page := &ObjectPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// CopyObject performs a server-side copy of key from srcBucket to dstBucket.
func (s *S3Store) CopyObject(ctx context.Context, srcBucket, dstBucket, key string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(key),
		CopySource: aws.String(srcBucket + "/" + url.PathEscape(key)),
	}
	if s.copyACL != "" {
		input.ACL = types.ObjectCannedACL(s.copyACL)
	}

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err := s.client.CopyObject(ctx, input)
	s.metrics.ObserveStorageOp("copy", err, time.Since(start))
	if err != nil {
		return objectError("copy", dstBucket, key, awsErrorCode(err), err)
	}
	return nil
}

// awsErrorCode extracts the service error code, falling back to the HTTP
// status when the response carried no parsable error body (HEAD requests).
func awsErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() != "" {
		return apiErr.ErrorCode()
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return strconv.Itoa(respErr.HTTPStatusCode())
	}
	return ""
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "https"
	if !useSSL {
		scheme = "http"
	}
	return scheme + "://" + strings.TrimPrefix(endpoint, "//")
}
