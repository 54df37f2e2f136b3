package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/catalog-s3/internal/config"
)

func newTestMemoryStore(opts ...Option) *MemoryStore {
	return NewMemoryStore(config.StorageConfig{Driver: config.DriverMemory, Bucket: "catalog-images"}, opts...)
}

func TestMemoryStoreUploadThenExists(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()

	assert.False(t, store.Exists(ctx, "products/never.png"))

	outcome := store.Upload(ctx, strings.NewReader("image"), "products/a.PNG")
	require.True(t, outcome.OK())
	assert.True(t, store.Exists(ctx, "products/a.PNG"))

	obj, ok := store.Object("catalog-images", "products/a.PNG")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []byte("image"), obj.Data)
}

func TestMemoryStoreUploadFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	store.FailOn("put", "", errors.New("bucket unreachable"))

	outcome := store.Upload(ctx, strings.NewReader("image"), "products/a.png")
	assert.False(t, outcome.OK())
	assert.Contains(t, outcome.Reason, "bucket unreachable")
	assert.False(t, store.Exists(ctx, "products/a.png"))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	store.Put("catalog-images", "products/a.png", []byte("x"))

	assert.True(t, store.Delete(ctx, "products/a.png"))
	assert.False(t, store.Exists(ctx, "products/a.png"))
	assert.True(t, store.Delete(ctx, "products/a.png"), "deleting a missing key succeeds")

	store.FailOn("delete", "products/b.png", errors.New("denied"))
	assert.False(t, store.Delete(ctx, "products/b.png"))
}

func TestMemoryStoreStatUnknown(t *testing.T) {
	store := newTestMemoryStore()
	store.FailOn("head", "products/a.png", errors.New("timeout"))

	presence, err := store.Stat(context.Background(), "products/a.png")
	assert.Equal(t, PresenceUnknown, presence)
	assert.ErrorIs(t, err, ErrObjectOperation)
	assert.False(t, store.Exists(context.Background(), "products/a.png"))
}

func TestMemoryStoreListPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore(WithPageSize(2))
	for i := 0; i < 5; i++ {
		store.Put("source", fmt.Sprintf("k%d", i), []byte("x"))
	}

	var all []string
	token := ""
	pages := 0
	for {
		page, err := store.ListPage(ctx, "source", token)
		require.NoError(t, err)
		pages++
		all = append(all, page.Keys...)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	assert.Equal(t, []string{"k0", "k1", "k2", "k3", "k4"}, all)
	assert.Equal(t, 3, pages)
}

func TestMemoryStoreListMissingBucket(t *testing.T) {
	_, err := newTestMemoryStore().ListPage(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrListing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopyObject(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	store.Put("source", "a.png", []byte("x"))
	store.CreateBucket("target")

	require.NoError(t, store.CopyObject(ctx, "source", "target", "a.png"))
	obj, ok := store.Object("target", "a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), obj.Data)

	err := store.CopyObject(ctx, "source", "missing", "a.png")
	assert.ErrorIs(t, err, ErrObjectOperation)
}

func TestMemoryStoreCheckBucket(t *testing.T) {
	store := newTestMemoryStore()

	presence, err := store.CheckBucket(context.Background(), "catalog-images")
	require.NoError(t, err)
	assert.Equal(t, PresenceExists, presence)

	presence, err = store.CheckBucket(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, PresenceAbsent, presence)
}

func TestNewSelectsDriver(t *testing.T) {
	backend, err := New(context.Background(), config.StorageConfig{Driver: config.DriverMemory, Bucket: "catalog-images"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, backend)

	_, err = New(context.Background(), config.StorageConfig{Driver: "ftp", Bucket: "catalog-images"})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(context.Background(), config.StorageConfig{Driver: config.DriverMinio, Bucket: "catalog-images", Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, ErrConfiguration)
}
