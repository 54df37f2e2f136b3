package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/repository"
	"github.com/andresuchdata/catalog-s3/internal/storage"
)

func newCatalogFixture() (*CatalogService, *mockProductRepo, *storage.MemoryStore) {
	repo := new(mockProductRepo)
	store := storage.NewMemoryStore(config.StorageConfig{Driver: config.DriverMemory, Bucket: "jfm02"})
	return NewCatalogService(repo, store, nil), repo, store
}

func validInput() domain.ProductInput {
	return domain.ProductInput{Name: " Desk lamp ", Description: "LED", Price: 1999}
}

func TestCatalogCreate(t *testing.T) {
	svc, repo, store := newCatalogFixture()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil).Once()

	p, err := svc.Create(context.Background(), validInput(), pngImage("lamp.PNG"))
	require.NoError(t, err)

	assert.Equal(t, "Desk lamp", p.Name)
	assert.True(t, strings.HasPrefix(p.ImageKey, "products/"))
	assert.True(t, strings.HasSuffix(p.ImageKey, ".png"))
	assert.Equal(t, "https://jfm02.s3.amazonaws.com/"+p.ImageKey, p.ImageURL)
	assert.True(t, store.Exists(context.Background(), p.ImageKey))
	repo.AssertExpectations(t)
}

func TestCatalogCreateRequiresImage(t *testing.T) {
	svc, repo, _ := newCatalogFixture()

	_, err := svc.Create(context.Background(), validInput(), nil)
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogCreateValidation(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	tests := []struct {
		name  string
		input domain.ProductInput
		field string
	}{
		{name: "empty name", input: domain.ProductInput{Name: "  ", Price: 1}, field: "name"},
		{name: "long name", input: domain.ProductInput{Name: strings.Repeat("x", 201), Price: 1}, field: "name"},
		{name: "negative price", input: domain.ProductInput{Name: "x", Price: -1}, field: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input, pngImage("a.png"))
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestCatalogCreateUploadFailure(t *testing.T) {
	svc, repo, store := newCatalogFixture()
	store.FailOn("put", "", errors.New("AccessDenied"))

	_, err := svc.Create(context.Background(), validInput(), pngImage("a.png"))
	assert.ErrorIs(t, err, ErrImageUpload)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogCreateSaveFailureRemovesUpload(t *testing.T) {
	svc, repo, store := newCatalogFixture()

	var uploadedKey string
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) {
			uploadedKey = args.Get(1).(*domain.Product).ImageKey
		}).
		Return(errors.New("db down")).Once()

	_, err := svc.Create(context.Background(), validInput(), pngImage("a.png"))
	require.Error(t, err)
	require.NotEmpty(t, uploadedKey)
	assert.False(t, store.Exists(context.Background(), uploadedKey), "uploaded image must be removed when the save fails")
}

func TestCatalogUpdateReplacesImageAfterSave(t *testing.T) {
	svc, repo, store := newCatalogFixture()
	ctx := context.Background()
	store.Put("jfm02", "products/old.png", pngBytes)

	repo.On("Get", mock.Anything, int64(7)).
		Return(&domain.Product{ID: 7, Name: "Old", Price: 100, ImageKey: "products/old.png"}, nil).Once()
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) {
			assert.True(t, store.Exists(ctx, "products/old.png"), "old image must survive until the record is saved")
		}).
		Return(nil).Once()

	p, err := svc.Update(ctx, 7, validInput(), pngImage("new.png"))
	require.NoError(t, err)

	assert.NotEqual(t, "products/old.png", p.ImageKey)
	assert.True(t, store.Exists(ctx, p.ImageKey))
	assert.False(t, store.Exists(ctx, "products/old.png"))
}

func TestCatalogUpdateWithoutImageKeepsKey(t *testing.T) {
	svc, repo, _ := newCatalogFixture()
	repo.On("Get", mock.Anything, int64(7)).
		Return(&domain.Product{ID: 7, Name: "Old", ImageKey: "products/old.png"}, nil).Once()
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil).Once()

	p, err := svc.Update(context.Background(), 7, validInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, "products/old.png", p.ImageKey)
	assert.Equal(t, "Desk lamp", p.Name)
}

func TestCatalogUpdateNotFound(t *testing.T) {
	svc, repo, _ := newCatalogFixture()
	repo.On("Get", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound).Once()

	_, err := svc.Update(context.Background(), 9, validInput(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogDelete(t *testing.T) {
	t.Run("removes image and record", func(t *testing.T) {
		svc, repo, store := newCatalogFixture()
		store.Put("jfm02", "products/a.png", pngBytes)
		repo.On("Get", mock.Anything, int64(3)).Return(&domain.Product{ID: 3, ImageKey: "products/a.png"}, nil).Once()
		repo.On("Delete", mock.Anything, int64(3)).Return(nil).Once()

		result, err := svc.Delete(context.Background(), 3)
		require.NoError(t, err)
		assert.Empty(t, result.Warning)
		assert.False(t, store.Exists(context.Background(), "products/a.png"))
	})

	t.Run("image delete failure is a warning", func(t *testing.T) {
		svc, repo, store := newCatalogFixture()
		store.FailOn("delete", "products/a.png", errors.New("AccessDenied"))
		repo.On("Get", mock.Anything, int64(3)).Return(&domain.Product{ID: 3, ImageKey: "products/a.png"}, nil).Once()
		repo.On("Delete", mock.Anything, int64(3)).Return(nil).Once()

		result, err := svc.Delete(context.Background(), 3)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Warning)
		repo.AssertExpectations(t)
	})
}

func TestCatalogList(t *testing.T) {
	svc, repo, _ := newCatalogFixture()
	repo.On("Count", mock.Anything).Return(int64(25), nil).Once()
	repo.On("List", mock.Anything, 12, 12).
		Return([]*domain.Product{{ID: 2, ImageKey: "products/b.png"}, {ID: 1}}, nil).Once()

	page, err := svc.List(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "https://jfm02.s3.amazonaws.com/products/b.png", page.Items[0].ImageURL)
	assert.Empty(t, page.Items[1].ImageURL)
}
