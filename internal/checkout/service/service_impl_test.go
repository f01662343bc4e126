package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/storefront/internal/catalog/repository"
	"github.com/smallbiznis/storefront/internal/checkout/domain"
	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	lastSession *gatewaydomain.CreateSessionRequest
	fail        bool
}

func (f *fakeGateway) CreateProduct(ctx context.Context, req gatewaydomain.CreateProductRequest) (*gatewaydomain.Product, error) {
	return &gatewaydomain.Product{ID: "prod_test"}, nil
}

func (f *fakeGateway) CreatePrice(ctx context.Context, req gatewaydomain.CreatePriceRequest) (*gatewaydomain.Price, error) {
	return &gatewaydomain.Price{ID: "price_test"}, nil
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req gatewaydomain.CreateSessionRequest) (*gatewaydomain.CheckoutSession, error) {
	if f.fail {
		return nil, fmt.Errorf("%w: session refused", gatewaydomain.ErrGateway)
	}
	f.lastSession = &req
	return &gatewaydomain.CheckoutSession{
		ID:            "cs_test_1",
		URL:           "https://checkout.stripe.com/pay/cs_test_1",
		Status:        "open",
		PaymentStatus: "unpaid",
	}, nil
}

func (f *fakeGateway) ListLineItems(ctx context.Context, sessionID string) ([]gatewaydomain.LineItem, error) {
	return nil, fmt.Errorf("%w: not supported in this fake", gatewaydomain.ErrGateway)
}

var testDBSeq int64

func seedProduct(t *testing.T, db *gorm.DB, priceID *string) string {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	id := node.Generate()

	now := time.Now().UTC()
	p := &catalogdomain.Product{
		ID:              id.Int64(),
		Name:            "Widget",
		Quantity:        10,
		StripeProductID: "prod_test",
		StripePriceID:   priceID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := catalogrepo.Provide().Create(context.Background(), db, p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id.String()
}

func newTestService(t *testing.T, gw gatewaydomain.Gateway) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&catalogdomain.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Repo:    catalogrepo.Provide(),
		Gateway: gw,
	})
	return svc, db
}

func TestCreateSession(t *testing.T) {
	gw := &fakeGateway{}
	svc, db := newTestService(t, gw)
	priceID := "price_test"
	id := seedProduct(t, db, &priceID)

	session, err := svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		ProductID:  id,
		Quantity:   3,
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL == "" {
		t.Fatalf("session = %+v", session)
	}
	if gw.lastSession.PriceID != "price_test" || gw.lastSession.Quantity != 3 {
		t.Fatalf("gateway request = %+v", gw.lastSession)
	}
	if gw.lastSession.ProductID != id {
		t.Fatalf("session metadata product id = %q, want %q", gw.lastSession.ProductID, id)
	}
}

func TestCreateSessionWithoutPrice(t *testing.T) {
	svc, db := newTestService(t, &fakeGateway{})
	id := seedProduct(t, db, nil)

	_, err := svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		ProductID:  id,
		Quantity:   1,
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	})
	if err != domain.ErrPriceNotSet {
		t.Fatalf("err = %v, want %v", err, domain.ErrPriceNotSet)
	}
}

func TestCreateSessionGuards(t *testing.T) {
	svc, db := newTestService(t, &fakeGateway{})
	priceID := "price_test"
	id := seedProduct(t, db, &priceID)

	cases := []struct {
		name string
		req  domain.CreateSessionRequest
		want error
	}{
		{
			name: "bad id",
			req:  domain.CreateSessionRequest{ProductID: "nope!", Quantity: 1, SuccessURL: "https://s", CancelURL: "https://c"},
			want: catalogdomain.ErrInvalidID,
		},
		{
			name: "zero quantity",
			req:  domain.CreateSessionRequest{ProductID: id, Quantity: 0, SuccessURL: "https://s", CancelURL: "https://c"},
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "missing urls",
			req:  domain.CreateSessionRequest{ProductID: id, Quantity: 1},
			want: domain.ErrInvalidURL,
		},
		{
			name: "unknown product",
			req:  domain.CreateSessionRequest{ProductID: "424242424242", Quantity: 1, SuccessURL: "https://s", CancelURL: "https://c"},
			want: catalogdomain.ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateSession(context.Background(), tc.req); err != tc.want {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	svc, db := newTestService(t, &fakeGateway{fail: true})
	priceID := "price_test"
	id := seedProduct(t, db, &priceID)

	_, err := svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		ProductID:  id,
		Quantity:   1,
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
}
