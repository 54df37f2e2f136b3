package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/repository"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, image_key, created_at, updated_at`

func (r *productRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	products := []*domain.Product{}
	if err := sqlx.SelectContext(ctx, r.db, &products, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO products (name, description, price, image_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query, p.Name, p.Description, p.Price, p.ImageKey).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE products
			SET name = $1, description = $2, price = $3, image_key = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING updated_at
		`
		err := tx.QueryRowContext(ctx, query, p.Name, p.Description, p.Price, p.ImageKey, p.ID).
			Scan(&p.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update product %d: %w", p.ID, err)
		}
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
