package service

import (
	"bytes"
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/andresuchdata/catalog-s3/internal/domain"
)

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	args := m.Called(ctx, limit, offset)
	items, _ := args.Get(0).([]*domain.Product)
	return items, args.Error(1)
}

func (m *mockProductRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProductRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockProductRepo) Create(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 1
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
	}
	return args.Error(0)
}

func (m *mockProductRepo) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*domain.StorageSettings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*domain.StorageSettings)
	return s, args.Error(1)
}

func (m *mockSettingsRepo) Save(ctx context.Context, s *domain.StorageSettings) error {
	return m.Called(ctx, s).Error(0)
}

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)
)

func pngImage(name string) *ImageFile {
	return &ImageFile{Filename: name, Size: int64(len(pngBytes)), Content: bytes.NewReader(pngBytes)}
}
