package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	minBucketNameLength = 3
	maxBucketNameLength = 63
)

var (
	ErrBucketNameLength  = errors.New("bucket name must be between 3 and 63 characters")
	ErrBucketNameCharset = errors.New("bucket name may only contain letters, digits, hyphens and dots")
	ErrSameBuckets       = errors.New("primary and backup bucket must differ")
)

// NormalizeBucketName trims and lowercases a bucket name. Validation happens
// separately so that callers can report the original input.
func NormalizeBucketName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateBucketName enforces the bucket name syntax accepted by the admin
// configuration: 3-63 characters drawn from letters, digits, '-' and '.'.
func ValidateBucketName(name string) error {
	if len(name) < minBucketNameLength || len(name) > maxBucketNameLength {
		return fmt.Errorf("%w: %q", ErrBucketNameLength, name)
	}

	for _, r := range name {
		if !isBucketRune(r) {
			return fmt.Errorf("%w: invalid character %q in %q", ErrBucketNameCharset, r, name)
		}
	}

	return nil
}

// ValidateBucketPair validates both names and rejects a backup bucket equal
// to the primary one. Names are compared after normalization.
func ValidateBucketPair(primary, backup string) error {
	if err := ValidateBucketName(primary); err != nil {
		return err
	}
	if err := ValidateBucketName(backup); err != nil {
		return err
	}
	if NormalizeBucketName(primary) == NormalizeBucketName(backup) {
		return fmt.Errorf("%w: %q", ErrSameBuckets, primary)
	}
	return nil
}

func isBucketRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.':
		return true
	}
	return false
}
