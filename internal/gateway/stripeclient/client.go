package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/gateway/domain"
)

const defaultBaseURL = "https://api.stripe.com"

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type stripeProduct struct {
	ID string `json:"id"`
}

type stripePrice struct {
	ID string `json:"id"`
}

type stripeCheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type stripeLineItemList struct {
	Data []struct {
		Quantity int64 `json:"quantity"`
	} `json:"data"`
}

// Client is a minimal Stripe REST client covering the catalog mirroring and
// checkout endpoints.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(cfg config.Config) domain.Gateway {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.APIKey),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	values := url.Values{}
	values.Set("name", req.Name)
	if strings.TrimSpace(req.Description) != "" {
		values.Set("description", req.Description)
	}
	if strings.TrimSpace(req.Image) != "" {
		values.Set("images[]", req.Image)
	}

	var out stripeProduct
	if err := c.doRequest(ctx, http.MethodPost, "/v1/products", values, "", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty product id", domain.ErrGateway)
	}
	return &domain.Product{ID: out.ID}, nil
}

func (c *Client) CreatePrice(ctx context.Context, req domain.CreatePriceRequest) (*domain.Price, error) {
	values := url.Values{}
	values.Set("unit_amount", strconv.FormatInt(req.UnitAmount, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("product", req.ProductID)

	var out stripePrice
	if err := c.doRequest(ctx, http.MethodPost, "/v1/prices", values, "price:"+req.ProductID, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty price id", domain.ErrGateway)
	}
	return &domain.Price{ID: out.ID}, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	values.Set("line_items[0][price]", req.PriceID)
	values.Set("line_items[0][quantity]", strconv.FormatInt(req.Quantity, 10))
	values.Set("metadata[product_id]", req.ProductID)

	var out stripeCheckoutSession
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty session id", domain.ErrGateway)
	}
	return &domain.CheckoutSession{
		ID:            out.ID,
		URL:           out.URL,
		Status:        out.Status,
		PaymentStatus: out.PaymentStatus,
	}, nil
}

func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	var out stripeLineItemList
	if err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID)+"/line_items", nil, "", &out); err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(out.Data))
	for _, item := range out.Data {
		items = append(items, domain.LineItem{Quantity: item.Quantity})
	}
	return items, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.ErrInvalidConfig
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return fmt.Errorf("%w: status %d", domain.ErrGateway, resp.StatusCode)
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", domain.ErrGateway, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	return nil
}
