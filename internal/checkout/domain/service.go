package domain

import (
	"context"
	"errors"

	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
)

type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*gatewaydomain.CheckoutSession, error)
}

type CreateSessionRequest struct {
	ProductID string `json:"-"`

	Quantity   int64  `json:"quantity"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

var (
	ErrPriceNotSet     = errors.New("price_not_set")
	ErrInvalidQuantity = errors.New("invalid_session_quantity")
	ErrInvalidURL      = errors.New("invalid_redirect_url")
)
