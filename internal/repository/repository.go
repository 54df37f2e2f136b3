package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/catalog-s3/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type ProductRepository interface {
	List(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

// SettingsRepository stores the single storage settings row. Get returns
// ErrNotFound until the row has been saved once.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.StorageSettings, error)
	Save(ctx context.Context, s *domain.StorageSettings) error
}
