package domain

import (
	"context"
	"errors"
)

// Gateway is the payment processor client used to mirror catalog state and
// drive checkout flows.
type Gateway interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	CreatePrice(ctx context.Context, req CreatePriceRequest) (*Price, error)
	CreateCheckoutSession(ctx context.Context, req CreateSessionRequest) (*CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error)
}

type CreateProductRequest struct {
	Name        string
	Description string
	Image       string
}

// Product is the gateway-side mirror of a catalog product.
type Product struct {
	ID string
}

type CreatePriceRequest struct {
	ProductID  string
	UnitAmount int64
	Currency   string
}

type Price struct {
	ID string
}

type CreateSessionRequest struct {
	PriceID    string
	Quantity   int64
	SuccessURL string
	CancelURL  string

	// ProductID tags the session metadata so the webhook reconciler can
	// route the completion event back to local inventory.
	ProductID string
}

// CheckoutSession is the gateway session descriptor returned to callers
// unmodified for client-side redirect.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type LineItem struct {
	Quantity int64
}

var (
	ErrInvalidConfig = errors.New("invalid_gateway_config")
	ErrGateway       = errors.New("gateway_error")
)
