// Package storage wraps the object store that holds catalog images.
//
// Every driver implements both ObjectStore, used by the catalog for single
// object operations, and BucketCopier, used by the replicator for bulk
// server-side copies between buckets.
package storage

import (
	"context"
	"io"
)

// Presence is the result of an existence check.
type Presence int

const (
	// PresenceUnknown means the backend could not answer (network, permissions).
	PresenceUnknown Presence = iota
	PresenceExists
	PresenceAbsent
)

func (p Presence) String() string {
	switch p {
	case PresenceExists:
		return "exists"
	case PresenceAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// UploadOutcome reports whether an upload reached the bucket. Upload failures
// are values, not errors, so callers decide whether to abort the catalog write.
type UploadOutcome struct {
	Key    string
	Reason string
	ok     bool
}

// Uploaded builds a successful outcome.
func Uploaded(key string) UploadOutcome {
	return UploadOutcome{Key: key, ok: true}
}

// UploadFailed builds a failed outcome carrying a human readable reason.
func UploadFailed(key, reason string) UploadOutcome {
	return UploadOutcome{Key: key, Reason: reason}
}

// OK reports whether the upload succeeded.
func (o UploadOutcome) OK() bool { return o.ok }

// ObjectStore is the per-object contract the catalog relies on.
type ObjectStore interface {
	// Upload rewinds body, infers the content type from key and stores it.
	Upload(ctx context.Context, body io.ReadSeeker, key string) UploadOutcome
	// Delete removes key and reports whether the backend accepted it.
	Delete(ctx context.Context, key string) bool
	// Exists reports true only when the object was positively found.
	Exists(ctx context.Context, key string) bool
	// Stat distinguishes absent objects from checks that failed.
	Stat(ctx context.Context, key string) (Presence, error)
	// URLFor returns the public URL of key without any I/O.
	URLFor(key string) string
	// Bucket returns the configured bucket.
	Bucket() string
}

// ObjectPage is one bounded page of a bucket listing. An empty NextToken
// marks the last page.
type ObjectPage struct {
	Keys      []string
	NextToken string
}

// BucketCopier is the backend contract of bucket replication.
type BucketCopier interface {
	ListPage(ctx context.Context, bucket, continuationToken string) (*ObjectPage, error)
	CopyObject(ctx context.Context, srcBucket, dstBucket, key string) error
}

// BucketChecker checks bucket reachability.
type BucketChecker interface {
	CheckBucket(ctx context.Context, bucket string) (Presence, error)
}

// Backend is what every driver in this package provides.
type Backend interface {
	ObjectStore
	BucketCopier
	BucketChecker
}
