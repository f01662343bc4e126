package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/checkout/domain"
	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    catalogdomain.Repository
	Gateway gatewaydomain.Gateway
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    catalogdomain.Repository
	gateway gatewaydomain.Gateway
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("checkout.service"),
		repo:    p.Repo,
		gateway: p.Gateway,
		metrics: p.Metrics,
	}
}

// CreateSession opens a gateway checkout session for a single priced
// product. No inventory is reserved here; stock is only decremented when
// the completion event arrives on the webhook.
func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*gatewaydomain.CheckoutSession, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, catalogdomain.ErrInvalidID
	}
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	successURL := strings.TrimSpace(req.SuccessURL)
	cancelURL := strings.TrimSpace(req.CancelURL)
	if successURL == "" || cancelURL == "" {
		return nil, domain.ErrInvalidURL
	}

	product, err := s.repo.FindByID(ctx, s.db, productID.Int64())
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, catalogdomain.ErrNotFound
	}
	if product.StripePriceID == nil || *product.StripePriceID == "" {
		return nil, domain.ErrPriceNotSet
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, gatewaydomain.CreateSessionRequest{
		PriceID:    *product.StripePriceID,
		Quantity:   req.Quantity,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		ProductID:  productID.String(),
	})
	if err != nil {
		s.log.Warn("gateway session creation failed",
			zap.Int64("product_id", productID.Int64()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordCheckoutSession(ctx)
	s.log.Info("checkout session created",
		zap.Int64("product_id", productID.Int64()),
		zap.String("session_id", session.ID),
		zap.Int64("quantity", req.Quantity),
	)
	return session, nil
}
