package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	SetPrice(ctx context.Context, req SetPriceRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    int64   `json:"quantity"`
	Image       *string `json:"image"`
}

type UpdateRequest struct {
	ID          string  `json:"-"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    int64   `json:"quantity"`
	Image       *string `json:"image"`
}

type SetPriceRequest struct {
	ID string `json:"-"`

	// Price is the unit amount in the currency's minor unit.
	Price int64 `json:"price"`
}

type Response struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Image           *string   `json:"image,omitempty"`
	Quantity        int64     `json:"quantity"`
	StripeProductID string    `json:"stripe_product_id"`
	StripePriceID   *string   `json:"stripe_price_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
)
