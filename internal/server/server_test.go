package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/config"
	gatewaydomain "github.com/smallbiznis/storefront/internal/gateway/domain"
	webhookdomain "github.com/smallbiznis/storefront/internal/webhook/domain"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products map[string]*catalogdomain.Response
	err      error
}

func (f *fakeCatalog) List(ctx context.Context) ([]catalogdomain.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]catalogdomain.Response, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*catalogdomain.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, catalogdomain.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Create(ctx context.Context, req catalogdomain.CreateRequest) (*catalogdomain.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, catalogdomain.ErrInvalidName
	}
	resp := &catalogdomain.Response{ID: "1001", Name: req.Name, Quantity: req.Quantity, StripeProductID: "prod_x"}
	f.products[resp.ID] = resp
	return resp, nil
}

func (f *fakeCatalog) Update(ctx context.Context, req catalogdomain.UpdateRequest) (*catalogdomain.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[req.ID]
	if !ok {
		return nil, catalogdomain.ErrNotFound
	}
	p.Name = req.Name
	p.Quantity = req.Quantity
	return p, nil
}

func (f *fakeCatalog) SetPrice(ctx context.Context, req catalogdomain.SetPriceRequest) (*catalogdomain.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if req.Price <= 0 {
		return nil, catalogdomain.ErrInvalidPrice
	}
	p, ok := f.products[req.ID]
	if !ok {
		return nil, catalogdomain.ErrNotFound
	}
	if p.StripePriceID == nil {
		priceID := "price_x"
		p.StripePriceID = &priceID
	}
	return p, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.products[id]; !ok {
		return catalogdomain.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeCheckout struct {
	err error
}

func (f *fakeCheckout) CreateSession(ctx context.Context, req checkoutdomain.CreateSessionRequest) (*gatewaydomain.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gatewaydomain.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

type fakeWebhook struct {
	err error
}

func (f *fakeWebhook) HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error {
	return f.err
}

func newTestServer(catalog *fakeCatalog, checkout *fakeCheckout, webhook *fakeWebhook) *Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{TestEnv: "testing works"},
		Log:         zap.NewNop(),
		CatalogSvc:  catalog,
		CheckoutSvc: checkout,
		WebhookSvc:  webhook,
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(&fakeCatalog{products: map[string]*catalogdomain.Response{}}, &fakeCheckout{}, &fakeWebhook{})

	w := doRequest(s, http.MethodGet, "/healthcheck", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["test_env"] != "testing works" {
		t.Fatalf("test_env = %q", body["test_env"])
	}
}

func TestProductRoutes(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*catalogdomain.Response{}}
	s := newTestServer(catalog, &fakeCheckout{}, &fakeWebhook{})

	w := doRequest(s, http.MethodPost, "/products", `{"name":"Keyboard","quantity":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doRequest(s, http.MethodPost, "/products", `{"name":"","quantity":5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d, want 400", w.Code)
	}

	w = doRequest(s, http.MethodGet, "/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	w = doRequest(s, http.MethodPut, "/products/1001", `{"name":"Keyboard v2","quantity":6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w = doRequest(s, http.MethodPut, "/products/9999", `{"name":"Ghost","quantity":1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update missing status = %d, want 404", w.Code)
	}

	w = doRequest(s, http.MethodDelete, "/products/1001", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}

	w = doRequest(s, http.MethodDelete, "/products/1001", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", w.Code)
	}
}

func TestSetPriceRouteMapsMissingProductTo400(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*catalogdomain.Response{}}
	s := newTestServer(catalog, &fakeCheckout{}, &fakeWebhook{})

	w := doRequest(s, http.MethodPut, "/products/9999/price", `{"price":12900}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Type != "validation_error" {
		t.Fatalf("error type = %q", resp.Error.Type)
	}
	if len(resp.Error.Errors) != 1 || resp.Error.Errors[0].Code != "product_not_found" {
		t.Fatalf("errors = %+v", resp.Error.Errors)
	}
}

func TestCheckoutSessionRoute(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*catalogdomain.Response{}}

	s := newTestServer(catalog, &fakeCheckout{}, &fakeWebhook{})
	w := doRequest(s, http.MethodPost, "/products/1001/checkout-sessions", `{"quantity":2,"successUrl":"https://s","cancelUrl":"https://c"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	s = newTestServer(catalog, &fakeCheckout{err: checkoutdomain.ErrPriceNotSet}, &fakeWebhook{})
	w = doRequest(s, http.MethodPost, "/products/1001/checkout-sessions", `{"quantity":2,"successUrl":"https://s","cancelUrl":"https://c"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unpriced status = %d, want 400", w.Code)
	}

	s = newTestServer(catalog, &fakeCheckout{err: catalogdomain.ErrNotFound}, &fakeWebhook{})
	w = doRequest(s, http.MethodPost, "/products/9999/checkout-sessions", `{"quantity":2,"successUrl":"https://s","cancelUrl":"https://c"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing product status = %d, want 400", w.Code)
	}

	s = newTestServer(catalog, &fakeCheckout{err: fmt.Errorf("%w: boom", gatewaydomain.ErrGateway)}, &fakeWebhook{})
	w = doRequest(s, http.MethodPost, "/products/1001/checkout-sessions", `{"quantity":2,"successUrl":"https://s","cancelUrl":"https://c"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("gateway failure status = %d, want 400", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Type != "gateway_error" {
		t.Fatalf("error type = %q, want gateway_error", resp.Error.Type)
	}
}

func TestWebhookRoute(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*catalogdomain.Response{}}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"applied", nil, http.StatusOK},
		{"ignored", webhookdomain.ErrEventIgnored, http.StatusOK},
		{"duplicate", webhookdomain.ErrEventAlreadyProcessed, http.StatusOK},
		{"integrity fault", fmt.Errorf("%w: insufficient_stock", webhookdomain.ErrIntegrityFault), http.StatusOK},
		{"bad signature", fmt.Errorf("%w: no matching signature", webhookdomain.ErrInvalidSignature), http.StatusBadRequest},
		{"bad payload", fmt.Errorf("%w: truncated", webhookdomain.ErrInvalidPayload), http.StatusBadRequest},
		{"storage failure", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(catalog, &fakeCheckout{}, &fakeWebhook{err: tc.err})
			w := doRequest(s, http.MethodPost, "/webhook", `{"id":"evt_1"}`)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && !strings.Contains(w.Body.String(), `"received":true`) {
				t.Fatalf("body = %s, want received ack", w.Body.String())
			}
		})
	}
}
