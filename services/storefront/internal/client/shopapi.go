package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httpclient"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/logger"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

const serviceName = "shopapi"

// ErrOrderNotReady is returned while the order for a payment intent has not
// been recorded yet.
var ErrOrderNotReady = errors.New("order not ready")

// HTTPDoer executes HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ShopAPI talks to the shop backend. Reads go through a retrying client;
// payment intent creation and order lookups go through a single-shot client
// because their callers own the retry policy.
type ShopAPI struct {
	baseURL    string
	reads      HTTPDoer
	singleShot HTTPDoer
	logger     *slog.Logger
}

// NewShopAPI creates a new shop API client.
func NewShopAPI(baseURL string, reads, singleShot HTTPDoer, logger *slog.Logger) *ShopAPI {
	return &ShopAPI{
		baseURL:    baseURL,
		reads:      reads,
		singleShot: singleShot,
		logger:     logger,
	}
}

type createPaymentIntentRequest struct {
	Items           []domain.CartLine      `json:"items"`
	Total           int64                  `json:"total"`
	Shipping        int64                  `json:"shipping"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// GetProduct resolves a product by id.
func (c *ShopAPI) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), "", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call shopapi get product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("product", productID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	product, err := decodeData[domain.Product](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	return &product, nil
}

// CreatePaymentIntent submits the draft and returns the handle the payment
// widget needs. It is never retried.
func (c *ShopAPI) CreatePaymentIntent(ctx context.Context, token string, draft domain.OrderDraft) (domain.PaymentIntentHandle, error) {
	body, err := json.Marshal(createPaymentIntentRequest{
		Items:           draft.Items,
		Total:           draft.Total,
		Shipping:        draft.Shipping,
		ShippingAddress: draft.ShippingAddress,
	})
	if err != nil {
		return domain.PaymentIntentHandle{}, fmt.Errorf("marshal payment intent request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/payment/create-payment-intent", token, bytes.NewReader(body))
	if err != nil {
		return domain.PaymentIntentHandle{}, err
	}

	resp, err := c.singleShot.Do(ctx, req)
	if err != nil {
		return domain.PaymentIntentHandle{}, fmt.Errorf("call shopapi create payment intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp.Body)
		return domain.PaymentIntentHandle{}, apperrors.Unauthorized("shopapi rejected the bearer token")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.PaymentIntentHandle{}, httpclient.ParseResponseError(resp, serviceName)
	}

	handle, err := decodeData[domain.PaymentIntentHandle](resp.Body)
	if err != nil {
		return domain.PaymentIntentHandle{}, fmt.Errorf("decode payment intent response: %w", err)
	}
	if handle.ClientSecret == "" {
		return domain.PaymentIntentHandle{}, fmt.Errorf("shopapi returned an empty client secret")
	}

	c.logger.InfoContext(ctx, "payment intent created",
		slog.String("payment_intent_id", handle.ID()),
		slog.Int64("total", draft.Total),
	)
	return handle, nil
}

// OrderByPaymentIntent fetches the order recorded for a payment intent. A
// 404 yields ErrOrderNotReady.
func (c *ShopAPI) OrderByPaymentIntent(ctx context.Context, token, paymentIntentID string) (*domain.ConfirmedOrder, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/orders/by-payment-intent/"+url.PathEscape(paymentIntentID), token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.singleShot.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call shopapi order lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		drain(resp.Body)
		return nil, ErrOrderNotReady
	case http.StatusUnauthorized:
		drain(resp.Body)
		return nil, apperrors.Unauthorized("shopapi rejected the bearer token")
	default:
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	order, err := decodeData[domain.ConfirmedOrder](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &order, nil
}

// Check reports whether the shop API is ready. It fits health.Checker.
func (c *ShopAPI) Check(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health/ready", "", nil)
	if err != nil {
		return err
	}
	resp, err := c.singleShot.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("shopapi health: %w", err)
	}
	defer resp.Body.Close()
	drain(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopapi health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *ShopAPI) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	return req, nil
}

func decodeData[T any](r io.Reader) (T, error) {
	var env envelope[T]
	err := json.NewDecoder(r).Decode(&env)
	return env.Data, err
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}
