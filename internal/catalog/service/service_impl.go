package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/config"
	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Gateway gatewaydomain.Gateway
	Cfg     config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	gateway  gatewaydomain.Gateway
	genID    *snowflake.Node
	currency string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		repo:     p.Repo,
		gateway:  p.Gateway,
		genID:    p.GenID,
		currency: p.Cfg.Stripe.Currency,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	productID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

// Create mirrors the product to the payment gateway before any local write,
// so a gateway failure leaves no local record behind. The gateway-side
// product is not rolled back on a local insert failure.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	mirror, err := s.gateway.CreateProduct(ctx, gatewaydomain.CreateProductRequest{
		Name:        name,
		Description: ptrToString(req.Description),
		Image:       ptrToString(req.Image),
	})
	if err != nil {
		s.log.Warn("gateway product registration failed", zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:              s.genID.Generate().Int64(),
		Name:            name,
		Description:     normalizeText(req.Description),
		Image:           normalizeText(req.Image),
		Quantity:        req.Quantity,
		StripeProductID: mirror.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	productID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.Name = name
	item.Description = normalizeText(req.Description)
	item.Image = normalizeText(req.Image)
	item.Quantity = req.Quantity
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

// SetPrice registers a gateway price at most once per product. The claim
// update serializes concurrent callers on the product row, so only the
// winner ever reaches the gateway; everyone else observes the stored price.
func (s *Service) SetPrice(ctx context.Context, req domain.SetPriceRequest) (*domain.Response, error) {
	productID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	if req.Price <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	var result *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		claimed, err := s.repo.ClaimPrice(ctx, tx, productID, now)
		if err != nil {
			return err
		}

		item, err := s.repo.FindByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if !claimed {
			// Price already registered; idempotent no-op.
			result = item
			return nil
		}

		price, err := s.gateway.CreatePrice(ctx, gatewaydomain.CreatePriceRequest{
			ProductID:  item.StripeProductID,
			UnitAmount: req.Price,
			Currency:   s.currency,
		})
		if err != nil {
			s.log.Warn("gateway price registration failed",
				zap.Int64("product_id", productID),
				zap.Error(err),
			)
			return err
		}

		if err := s.repo.SetPriceID(ctx, tx, productID, price.ID, now); err != nil {
			return err
		}

		item.StripePriceID = &price.ID
		item.UpdatedAt = now
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(result)
	return &resp, nil
}

// Delete removes the local record only; the gateway mirror is kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	productID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, productID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:              snowflake.ID(p.ID).String(),
		Name:            p.Name,
		Description:     p.Description,
		Image:           p.Image,
		Quantity:        p.Quantity,
		StripeProductID: p.StripeProductID,
		StripePriceID:   p.StripePriceID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
