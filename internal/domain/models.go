package domain

import "time"

// Product is a catalog entry. ImageKey is the object key of its image in the
// primary bucket; ImageURL is derived from it when the product is served.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       Price     `json:"price" db:"price"`
	ImageKey    string    `json:"image_key,omitempty" db:"image_key"`
	ImageURL    string    `json:"image_url,omitempty" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name        string
	Description string
	Price       Price
}

// ProductPage is one page of the product list, newest first.
type ProductPage struct {
	Items      []*Product `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// DeleteResult reports a product deletion. The record is removed even when
// the image could not be, in which case Warning says so.
type DeleteResult struct {
	ID      int64  `json:"id"`
	Warning string `json:"warning,omitempty"`
}

// StorageSettings are the admin-editable bucket names.
type StorageSettings struct {
	BucketName   string    `json:"bucket_name" db:"bucket_name"`
	BackupBucket string    `json:"backup_bucket" db:"backup_bucket"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
