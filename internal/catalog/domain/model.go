package domain

import "time"

type Product struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"type:text;not null"`
	Description     *string   `json:"description,omitempty" gorm:"type:text"`
	Image           *string   `json:"image,omitempty" gorm:"type:text"`
	Quantity        int64     `json:"quantity" gorm:"not null;default:0"`
	StripeProductID string    `json:"stripe_product_id" gorm:"column:stripe_product_id;type:text;not null"`
	StripePriceID   *string   `json:"stripe_price_id,omitempty" gorm:"column:stripe_price_id;type:text"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
