package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, description, image, quantity, stripe_product_id, stripe_price_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Description,
		product.Image,
		product.Quantity,
		product.StripeProductID,
		product.StripePriceID,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, image, quantity, stripe_product_id, stripe_price_id, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, image, quantity, stripe_product_id, stripe_price_id, created_at, updated_at
		 FROM products ORDER BY updated_at DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, image = ?, quantity = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.Description,
		product.Image,
		product.Quantity,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) ClaimPrice(ctx context.Context, db *gorm.DB, id int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET updated_at = ?
		 WHERE id = ? AND stripe_price_id IS NULL`,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetPriceID(ctx context.Context, db *gorm.DB, id int64, priceID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET stripe_price_id = ?, updated_at = ?
		 WHERE id = ?`,
		priceID,
		now,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DecrementQuantity(ctx context.Context, db *gorm.DB, id int64, quantity int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET quantity = quantity - ?, updated_at = ?
		 WHERE id = ? AND quantity >= ?`,
		quantity,
		now,
		id,
		quantity,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
