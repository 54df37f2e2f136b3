package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"x.png":              "image/png",
		"products/a.JPG":     "image/jpeg",
		"a.jpeg":             "image/jpeg",
		"a.gif":              "image/gif",
		"a.webp":             "image/webp",
		"a.bmp":              "image/bmp",
		"x.unknownext":       "application/octet-stream",
		"no-extension":       "application/octet-stream",
		"dir.png/file":       "application/octet-stream",
		"archive.tar.gz":     "application/octet-stream",
		"products/photo.Png": "image/png",
	}

	for key, want := range tests {
		assert.Equal(t, want, ContentTypeFor(key), key)
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://jfm02.s3.amazonaws.com/products/a.png", publicURL("", "jfm02", "products/a.png"))
	assert.Equal(t, "https://cdn.example.com/products/a.png", publicURL("https://cdn.example.com/", "jfm02", "/products/a.png"))
}

func TestErrorClassification(t *testing.T) {
	err := objectError("head", "b", "k", "NoSuchKey", errors.New("missing"))
	assert.ErrorIs(t, err, ErrObjectOperation)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, "storage.head b/k [NoSuchKey]: missing", err.Error())

	denied := listingError("b", "403", errors.New("forbidden"))
	assert.ErrorIs(t, denied, ErrListing)
	assert.ErrorIs(t, denied, ErrAccessDenied)
	assert.Equal(t, "403", CodeOf(denied))
}
