package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error

	// ClaimPrice atomically marks the product as price-pending by touching
	// the row while stripe_price_id is still absent. Returns false when the
	// product is missing or a price is already registered.
	ClaimPrice(ctx context.Context, db *gorm.DB, id int64, now time.Time) (bool, error)
	SetPriceID(ctx context.Context, db *gorm.DB, id int64, priceID string, now time.Time) error

	Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	// DecrementQuantity applies a guarded server-side decrement. Returns
	// false when the product is missing or stock is insufficient.
	DecrementQuantity(ctx context.Context, db *gorm.DB, id int64, quantity int64, now time.Time) (bool, error)
}
