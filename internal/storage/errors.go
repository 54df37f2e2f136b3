package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrConfiguration means no work was attempted: credentials, bucket names
	// or the source/target pair are unusable.
	ErrConfiguration = errors.New("storage: configuration error")

	// ErrListing means the source bucket could not be enumerated.
	ErrListing = errors.New("storage: listing failed")

	// ErrObjectOperation marks a failed upload, delete, copy or head of a
	// single object.
	ErrObjectOperation = errors.New("storage: object operation failed")

	ErrNotFound     = errors.New("storage: not found")
	ErrAccessDenied = errors.New("storage: access denied")
)

// Error describes a failed storage call with the bucket, key and backend
// error code it concerned.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Code   string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("storage.")
	b.WriteString(e.Op)
	switch {
	case e.Bucket != "" && e.Key != "":
		fmt.Fprintf(&b, " %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		fmt.Fprintf(&b, " bucket %s", e.Bucket)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if class := classify(e.Code); class != nil {
		errs = append(errs, class)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func configError(op, bucket string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Kind: ErrConfiguration, Err: err}
}

func objectError(op, bucket, key, code string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Code: code, Kind: ErrObjectOperation, Err: err}
}

func listingError(bucket, code string, err error) *Error {
	return &Error{Op: "list", Bucket: bucket, Code: code, Kind: ErrListing, Err: err}
}

// classify maps backend error codes shared by S3 and S3-compatible stores.
func classify(code string) error {
	switch code {
	case "NotFound", "NoSuchKey", "NoSuchBucket", "404":
		return ErrNotFound
	case "AccessDenied", "Forbidden", "403", "AllAccessDisabled":
		return ErrAccessDenied
	}
	return nil
}

// CodeOf returns the backend error code carried by err, if any.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
