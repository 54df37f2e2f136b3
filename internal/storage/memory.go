package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
)

// MemoryObject is an object held by MemoryStore.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps buckets in process memory. It backs local development
// and tests; buckets are created on first write.
type MemoryStore struct {
	mu         sync.RWMutex
	buckets    map[string]map[string]MemoryObject
	faults     map[string]error
	bucket     string
	publicBase string
	pageSize   int
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewMemoryStore creates an empty store whose primary bucket already exists.
func NewMemoryStore(cfg config.StorageConfig, opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	s := &MemoryStore{
		buckets:    map[string]map[string]MemoryObject{cfg.Bucket: {}},
		faults:     map[string]error{},
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		pageSize:   o.pageSize,
		logger:     o.logger.With().Str("driver", config.DriverMemory).Str("bucket", cfg.Bucket).Logger(),
		metrics:    o.metrics,
	}
	return s
}

// FailOn makes every later call of op ("put", "delete", "head", "list",
// "copy") on key fail with err. An empty key matches every key.
func (s *MemoryStore) FailOn(op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op+"\x00"+key] = err
}

// CreateBucket makes bucket available for listing and copying.
func (s *MemoryStore) CreateBucket(bucket string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = map[string]MemoryObject{}
	}
}

// Object returns a copy of the stored object.
func (s *MemoryStore) Object(bucket, key string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][key]
	return obj, ok
}

// Put seeds an object into bucket without going through Upload.
func (s *MemoryStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = map[string]MemoryObject{}
	}
	s.buckets[bucket][key] = MemoryObject{Data: append([]byte(nil), data...), ContentType: ContentTypeFor(key)}
}

func (s *MemoryStore) fault(op, key string) error {
	if err, ok := s.faults[op+"\x00"+key]; ok {
		return err
	}
	return s.faults[op+"\x00"]
}

func (s *MemoryStore) Bucket() string { return s.bucket }

func (s *MemoryStore) URLFor(key string) string {
	return publicURL(s.publicBase, s.bucket, key)
}

func (s *MemoryStore) CheckBucket(_ context.Context, bucket string) (Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("head_bucket", bucket); err != nil {
		return PresenceUnknown, &Error{Op: "head_bucket", Bucket: bucket, Err: err}
	}
	if _, ok := s.buckets[bucket]; ok {
		return PresenceExists, nil
	}
	return PresenceAbsent, nil
}

func (s *MemoryStore) Upload(ctx context.Context, body io.ReadSeeker, key string) UploadOutcome {
	start := time.Now()
	err := s.put(ctx, body, key)
	s.metrics.ObserveStorageOp("put", err, time.Since(start))
	if err != nil {
		serr := objectError("put", s.bucket, key, CodeOf(err), err)
		s.logger.Error().Err(serr).Str("key", key).Msg("upload failed")
		return UploadFailed(key, serr.Error())
	}
	return Uploaded(key)
}

func (s *MemoryStore) put(ctx context.Context, body io.ReadSeeker, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("put", key); err != nil {
		return err
	}
	s.buckets[s.bucket][key] = MemoryObject{Data: buf.Bytes(), ContentType: ContentTypeFor(key)}
	return nil
}

// Delete removes key. Deleting a missing key succeeds, as it does on S3.
func (s *MemoryStore) Delete(_ context.Context, key string) bool {
	start := time.Now()
	s.mu.Lock()
	err := s.fault("delete", key)
	if err == nil {
		delete(s.buckets[s.bucket], key)
	}
	s.mu.Unlock()

	s.metrics.ObserveStorageOp("delete", err, time.Since(start))
	if err != nil {
		s.logger.Error().Err(objectError("delete", s.bucket, key, "", err)).Str("key", key).Msg("delete failed")
		return false
	}
	return true
}

func (s *MemoryStore) Exists(ctx context.Context, key string) bool {
	presence, _ := s.Stat(ctx, key)
	return presence == PresenceExists
}

func (s *MemoryStore) Stat(_ context.Context, key string) (Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("head", key); err != nil {
		return PresenceUnknown, objectError("head", s.bucket, key, CodeOf(err), err)
	}
	if _, ok := s.buckets[s.bucket][key]; ok {
		return PresenceExists, nil
	}
	return PresenceAbsent, nil
}

// ListPage lists keys in lexical order. Tokens are the last key returned.
func (s *MemoryStore) ListPage(ctx context.Context, bucket, continuationToken string) (*ObjectPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, listingError(bucket, "", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("list", bucket); err != nil {
		return nil, listingError(bucket, CodeOf(err), err)
	}
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, listingError(bucket, "NoSuchBucket", errors.New("bucket does not exist"))
	}

	keys := make([]string, 0, len(objects))
	for k := range objects {
		if k > continuationToken {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &ObjectPage{Keys: keys}
	if len(keys) > s.pageSize {
		page.Keys = keys[:s.pageSize]
		page.NextToken = page.Keys[len(page.Keys)-1]
	}
	return page, nil
}

func (s *MemoryStore) CopyObject(ctx context.Context, srcBucket, dstBucket, key string) error {
	if err := ctx.Err(); err != nil {
		return objectError("copy", dstBucket, key, "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("copy", key); err != nil {
		return objectError("copy", dstBucket, key, CodeOf(err), err)
	}
	obj, ok := s.buckets[srcBucket][key]
	if !ok {
		return objectError("copy", dstBucket, key, "NoSuchKey", errors.New("source object does not exist"))
	}
	dst, ok := s.buckets[dstBucket]
	if !ok {
		return objectError("copy", dstBucket, key, "NoSuchBucket", errors.New("destination bucket does not exist"))
	}
	dst[key] = obj
	return nil
}
