package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/config"
	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"github.com/smallbiznis/storefront/internal/webhook/signature"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fault reasons recorded on acknowledged-but-unapplied events.
const (
	faultMissingMetadata   = "missing_product_metadata"
	faultEmptyLineItems    = "empty_line_items"
	faultProductNotFound   = "product_not_found"
	faultInsufficientStock = "insufficient_stock"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Products catalogdomain.Repository
	Gateway  gatewaydomain.Gateway
	Cfg      config.Config
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	products   catalogdomain.Repository
	gateway    gatewaydomain.Gateway
	secret     string
	skipVerify bool
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		products:   p.Products,
		gateway:    p.Gateway,
		secret:     p.Cfg.Stripe.WebhookSecret,
		skipVerify: p.Cfg.Stripe.SkipVerify,
		metrics:    p.Metrics,
	}
}

type sessionObject struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object sessionObject `json:"object"`
	} `json:"data"`
}

// HandleDelivery runs one delivery through verify, resolve, and apply.
// Inventory is decremented at most once per session regardless of how many
// times the sender redelivers the completion event.
func (s *Service) HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error {
	if !s.skipVerify {
		if err := signature.Verify(payload, signatureHeader, s.secret, time.Now(), signature.DefaultTolerance); err != nil {
			s.log.Warn("webhook signature rejected", zap.Error(err))
			return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
	}

	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if evt.Type == "" {
		return fmt.Errorf("%w: missing event type", domain.ErrInvalidPayload)
	}

	if evt.Type != domain.EventCheckoutSessionCompleted ||
		evt.Data.Object.PaymentStatus != domain.PaymentStatusPaid {
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "ignored")
		return domain.ErrEventIgnored
	}

	session := evt.Data.Object
	if session.ID == "" {
		return fmt.Errorf("%w: missing session id", domain.ErrInvalidPayload)
	}

	productID, fault := s.resolveProductID(session)

	var quantity int64
	if fault == "" {
		items, err := s.gateway.ListLineItems(ctx, session.ID)
		if err != nil {
			s.log.Warn("line item lookup failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			return err
		}
		for _, item := range items {
			quantity += item.Quantity
		}
		if quantity <= 0 {
			fault = faultEmptyLineItems
		}
	}

	var outcome error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		inserted, err := s.repo.InsertEvent(ctx, tx, &domain.EventRecord{
			ID:         s.genID.Generate().Int64(),
			SessionID:  session.ID,
			EventID:    evt.ID,
			EventType:  evt.Type,
			ProductID:  productID,
			Quantity:   quantity,
			Payload:    datatypes.JSON(payload),
			ReceivedAt: now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			outcome = domain.ErrEventAlreadyProcessed
			return nil
		}

		if fault == "" {
			applied, err := s.products.DecrementQuantity(ctx, tx, productID, quantity, now)
			if err != nil {
				return err
			}
			if !applied {
				product, err := s.products.FindByID(ctx, tx, productID)
				if err != nil {
					return err
				}
				if product == nil {
					fault = faultProductNotFound
				} else {
					fault = faultInsufficientStock
				}
			}
		}

		var processingError *string
		if fault != "" {
			processingError = &fault
			outcome = fmt.Errorf("%w: %s", domain.ErrIntegrityFault, fault)
		}
		return s.repo.MarkProcessed(ctx, tx, session.ID, processingError, now)
	})
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "error")
		return err
	}

	switch {
	case outcome == domain.ErrEventAlreadyProcessed:
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "duplicate")
		s.log.Info("duplicate delivery acknowledged",
			zap.String("session_id", session.ID),
			zap.String("event_id", evt.ID),
		)
	case outcome != nil:
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "integrity_fault")
		s.metrics.RecordIntegrityFault(ctx, fault)
		s.log.Error("event acknowledged without applying inventory change",
			zap.String("session_id", session.ID),
			zap.String("event_id", evt.ID),
			zap.Int64("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.String("reason", fault),
		)
	default:
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "applied")
		s.metrics.RecordInventoryDecrement(ctx, quantity)
		s.log.Info("inventory reconciled",
			zap.String("session_id", session.ID),
			zap.Int64("product_id", productID),
			zap.Int64("quantity", quantity),
		)
	}
	return outcome
}

func (s *Service) resolveProductID(session sessionObject) (int64, string) {
	raw := strings.TrimSpace(session.Metadata["product_id"])
	if raw == "" {
		return 0, faultMissingMetadata
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, faultMissingMetadata
	}
	return id.Int64(), ""
}
