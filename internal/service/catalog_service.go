package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/catalog-s3/internal/cache"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/repository"
	"github.com/andresuchdata/catalog-s3/internal/storage"
)

const (
	DefaultPageSize   = 12
	maxNameLength     = 200
	productImagesPath = "products/"
)

type CatalogService struct {
	repo     repository.ProductRepository
	store    storage.ObjectStore
	cache    cache.ProductCache
	pageSize int
}

func NewCatalogService(repo repository.ProductRepository, store storage.ObjectStore, cacheImpl cache.ProductCache) *CatalogService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopProductCache()
	}
	return &CatalogService{
		repo:     repo,
		store:    store,
		cache:    cacheImpl,
		pageSize: DefaultPageSize,
	}
}

// List returns one page of products, newest first. Pages start at 1.
func (s *CatalogService) List(ctx context.Context, page int) (*domain.ProductPage, error) {
	if page < 1 {
		page = 1
	}

	if cached, ok, err := s.cache.GetPage(ctx, page, s.pageSize); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("catalog: cache get page failed")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		s.decorate(p)
	}

	result := &domain.ProductPage{
		Items:      items,
		Page:       page,
		PageSize:   s.pageSize,
		Total:      total,
		TotalPages: int((total + int64(s.pageSize) - 1) / int64(s.pageSize)),
	}

	if err := s.cache.SetPage(ctx, page, s.pageSize, result); err != nil {
		log.Warn().Err(err).Msg("catalog: cache set page failed")
	}

	return result, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "product %d", id)
	}
	s.decorate(p)
	return p, nil
}

// Create uploads the image, then saves the record. If the save fails the
// uploaded object is deleted again.
func (s *CatalogService) Create(ctx context.Context, input domain.ProductInput, img *ImageFile) (*domain.Product, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fieldError("image", "an image is required")
	}
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	key, err := s.uploadImage(ctx, img)
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		ImageKey:    key,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}

	s.invalidate(ctx)
	s.decorate(p)
	log.Info().Int64("product_id", p.ID).Str("image_key", key).Msg("product created")
	return p, nil
}

// Update saves new field values and, when img is set, replaces the image.
// The previous image is deleted only after the record points at the new one.
func (s *CatalogService) Update(ctx context.Context, id int64, input domain.ProductInput, img *ImageFile) (*domain.Product, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if img != nil {
		if err := ValidateImage(img); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "product %d", id)
	}

	oldKey := p.ImageKey
	newKey := ""
	if img != nil {
		if newKey, err = s.uploadImage(ctx, img); err != nil {
			return nil, err
		}
		p.ImageKey = newKey
	}

	p.Name = input.Name
	p.Description = input.Description
	p.Price = input.Price

	if err := s.repo.Update(ctx, p); err != nil {
		if newKey != "" {
			s.discardImage(ctx, newKey)
		}
		return nil, mapRepoError(err, "product %d", id)
	}

	if newKey != "" && oldKey != "" && oldKey != newKey {
		if !s.store.Delete(ctx, oldKey) {
			log.Warn().Int64("product_id", id).Str("image_key", oldKey).Msg("catalog: previous image left in storage")
		}
	}

	s.invalidate(ctx)
	s.decorate(p)
	return p, nil
}

// Delete removes the product image and then the record. A failed image
// delete does not stop the record deletion; it is reported as a warning.
func (s *CatalogService) Delete(ctx context.Context, id int64) (*domain.DeleteResult, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "product %d", id)
	}

	result := &domain.DeleteResult{ID: id}
	if p.ImageKey != "" && !s.store.Delete(ctx, p.ImageKey) {
		result.Warning = "the product image could not be removed from storage"
		log.Warn().Int64("product_id", id).Str("image_key", p.ImageKey).Msg("catalog: image delete failed")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, mapRepoError(err, "product %d", id)
	}

	s.invalidate(ctx)
	return result, nil
}

func (s *CatalogService) uploadImage(ctx context.Context, img *ImageFile) (string, error) {
	key := productImagesPath + uuid.NewString() + img.Ext()
	outcome := s.store.Upload(ctx, img.Content, key)
	if !outcome.OK() {
		return "", fmt.Errorf("%w: %s", ErrImageUpload, outcome.Reason)
	}
	return key, nil
}

func (s *CatalogService) discardImage(ctx context.Context, key string) {
	if !s.store.Delete(ctx, key) {
		log.Warn().Str("image_key", key).Msg("catalog: could not delete image of unsaved product")
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog: cache invalidate failed")
	}
}

func (s *CatalogService) decorate(p *domain.Product) {
	if p.ImageKey != "" {
		p.ImageURL = s.store.URLFor(p.ImageKey)
	}
}

func normalizeInput(in domain.ProductInput) (domain.ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" {
		return in, fieldError("name", "is required")
	}
	if utf8.RuneCountInString(in.Name) > maxNameLength {
		return in, fieldError("name", "must be at most %d characters", maxNameLength)
	}
	if in.Price < 0 || in.Price > domain.MaxPrice {
		return in, fieldError("price", "must be between 0 and %s", domain.MaxPrice)
	}
	return in, nil
}

func mapRepoError(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return err
}
