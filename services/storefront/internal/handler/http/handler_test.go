package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/health"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/client"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository/memory"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/service"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeCatalog map[string]domain.Product

func (c fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

type fakePayments struct {
	mu     sync.Mutex
	drafts []domain.OrderDraft
	err    error
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, _ string, draft domain.OrderDraft) (domain.PaymentIntentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, draft)
	if f.err != nil {
		return domain.PaymentIntentHandle{}, f.err
	}
	return domain.PaymentIntentHandle{ClientSecret: "pi_test_secret_abc"}, nil
}

func (f *fakePayments) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drafts)
}

type fakeOrders struct {
	mu       sync.Mutex
	notReady int
	calls    int
}

func (f *fakeOrders) OrderByPaymentIntent(_ context.Context, _, id string) (*domain.ConfirmedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.notReady {
		return nil, client.ErrOrderNotReady
	}
	return &domain.ConfirmedOrder{OrderNumber: "HEC-" + id, Status: "processed"}, nil
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	router   http.Handler
	payments *fakePayments
	orders   *fakeOrders
	hub      *event.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	hub := event.NewHub()
	catalog := fakeCatalog{
		"peluche-kuromi": {ID: "peluche-kuromi", Name: "Peluche Kuromi", Price: 50_000, Stock: 10},
		"pocky-fresa":    {ID: "pocky-fresa", Name: "Pocky Fresa", Price: 8_000, Stock: 0},
	}
	carts := service.NewCartService(memory.NewCartRepository(), catalog, hub, logger)
	payments := &fakePayments{}
	orders := &fakeOrders{notReady: 1}
	checkout := service.NewCheckoutService(carts, payments, "http://localhost:5173/confirmation", logger)
	poller := service.NewConfirmationPoller(orders, carts, service.PollerConfig{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	}, logger)

	router := NewRouter(Services{Carts: carts, Checkout: checkout, Poller: poller, Hub: hub},
		health.NewHandler(), logger, RouterConfig{
			CORS:      middleware.DefaultCORSConfig(),
			Session:   SessionConfig{MaxAge: time.Hour},
			Heartbeat: 20 * time.Millisecond,
		})
	return &testEnv{router: router, payments: payments, orders: orders, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data  T `json:"data"`
		Error *struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

// ============================================================================
// Session
// ============================================================================

func TestSession_MintsAndEchoes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	minted := rec.Header().Get(SessionHeader)
	_, err := uuid.Parse(minted)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, minted, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSession_FromCookieAndHeader(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(SessionHeader))

	rec = env.do(t, http.MethodGet, "/api/cart", id, nil)
	assert.Equal(t, id, rec.Header().Get(SessionHeader))

	rec = env.do(t, http.MethodGet, "/api/cart", "not-a-uuid", nil)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(SessionHeader))
}

// ============================================================================
// Cart
// ============================================================================

func TestCartRoutes_Flow(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()

	rec := env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeData[domain.CartView](t, rec)
	assert.Equal(t, 1, view.TotalItems, "quantity defaults to 1")

	rec = env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi", "quantity": 1})
	view = decodeData[domain.CartView](t, rec)
	assert.Equal(t, 2, view.TotalItems)
	assert.Equal(t, int64(100_000), view.Subtotal)
	assert.Equal(t, int64(10_000), view.Shipping)
	assert.Equal(t, int64(110_000), view.Total)

	rec = env.do(t, http.MethodPut, "/api/cart/items/peluche-kuromi", s, map[string]any{"quantity": 3})
	view = decodeData[domain.CartView](t, rec)
	assert.Equal(t, int64(150_000), view.Total)

	rec = env.do(t, http.MethodPut, "/api/cart/items/peluche-kuromi", s, map[string]any{"quantity": 0})
	view = decodeData[domain.CartView](t, rec)
	assert.Equal(t, 1, view.Lines[0].Quantity)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/peluche-kuromi", s, nil)
	view = decodeData[domain.CartView](t, rec)
	assert.Empty(t, view.Lines)

	rec = env.do(t, http.MethodDelete, "/api/cart", s, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCartRoutes_Errors(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		status   int
		wantCode string
	}{
		{name: "zero quantity", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "peluche-kuromi", "quantity": 0}, status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "missing product id", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"quantity": 1}, status: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "unknown product", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "ghost"}, status: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "out of stock", method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"productId": "pocky-fresa"}, status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "update absent line", method: http.MethodPut, path: "/api/cart/items/ghost", body: map[string]any{"quantity": 2}, status: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "update without quantity", method: http.MethodPut, path: "/api/cart/items/ghost", body: map[string]any{}, status: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, s, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestCartRoutes_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("productId=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCartRoutes_NoStore(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/cart", uuid.NewString(), nil)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

// ============================================================================
// Checkout
// ============================================================================

func validFormBody() map[string]string {
	return map[string]string{
		"name":    "Ana Gómez",
		"email":   "ana@example.com",
		"address": "Calle 45 #12-30",
		"city":    "Medellín",
		"zip":     "050021",
		"country": "Colombia",
	}
}

func TestCheckout_EmptyCartRedirect(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()

	rec := env.do(t, http.MethodGet, "/api/checkout/quote", s, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RedirectCart, decodeData[service.CheckoutSummary](t, rec).Redirect)

	rec = env.do(t, http.MethodPost, "/api/checkout", s, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RedirectCart, decodeData[service.CheckoutResult](t, rec).Redirect)
	assert.Equal(t, 0, env.payments.calls())
}

func TestCheckout_Begin(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi", "quantity": 2})

	rec := env.do(t, http.MethodPost, "/api/checkout", s, validFormBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeData[service.CheckoutResult](t, rec)
	assert.Equal(t, "pi_test_secret_abc", res.ClientSecret)
	assert.Equal(t, "pi_test", res.PaymentIntentID)
	assert.Equal(t, "http://localhost:5173/confirmation", res.ReturnURL)
	require.NotNil(t, res.Quote)
	assert.Equal(t, int64(110_000), res.Quote.Total)
	assert.Equal(t, 1, env.payments.calls())
}

func TestCheckout_Begin_ValidationFields(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi"})

	form := validFormBody()
	delete(form, "zip")
	form["email"] = "nope"

	rec := env.do(t, http.MethodPost, "/api/checkout", s, form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env2 struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env2))
	assert.Equal(t, "VALIDATION_ERROR", env2.Error.Code)
	assert.Contains(t, env2.Error.Fields, "zip")
	assert.Contains(t, env2.Error.Fields, "email")
	assert.Equal(t, 0, env.payments.calls())
}

func TestCheckout_Begin_NoTokenRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi"})

	b, _ := json.Marshal(validFormBody())
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewReader(b))
	req.Header.Set(SessionHeader, s)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RedirectLogin, decodeData[service.CheckoutResult](t, rec).Redirect)
}

func TestConfirmation_ClearsCart(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi"})

	rec := env.do(t, http.MethodGet, "/api/checkout/confirmation?payment_intent=pi_9", s, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[domain.ConfirmationOutcome](t, rec)
	assert.Equal(t, domain.StateConfirmed, out.State)
	assert.Equal(t, 2, out.Attempts)
	require.NotNil(t, out.Order)
	assert.Equal(t, "HEC-pi_9", out.Order.OrderNumber)

	rec = env.do(t, http.MethodGet, "/api/cart", s, nil)
	assert.Empty(t, decodeData[domain.CartView](t, rec).Lines)
}

func TestConfirmation_ReloadAfterClearStillShowsOrder(t *testing.T) {
	env := newTestEnv(t)
	s := uuid.NewString()
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi"})

	first := env.do(t, http.MethodGet, "/api/checkout/confirmation?payment_intent=pi_9", s, nil)
	require.Equal(t, domain.StateConfirmed, decodeData[domain.ConfirmationOutcome](t, first).State)

	rec := env.do(t, http.MethodGet, "/api/checkout/confirmation?payment_intent=pi_9", s, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[domain.ConfirmationOutcome](t, rec)
	assert.Equal(t, domain.StateConfirmed, out.State, "an empty cart does not redirect away from confirmation")
	assert.Empty(t, out.Redirect)
	require.NotNil(t, out.Order)
	assert.Equal(t, "HEC-pi_9", out.Order.OrderNumber)
}

func TestConfirmation_FromClientSecret(t *testing.T) {
	env := newTestEnv(t)
	env.orders.notReady = 0

	rec := env.do(t, http.MethodGet, "/api/checkout/confirmation?payment_intent_client_secret=pi_5_secret_x", uuid.NewString(), nil)
	out := decodeData[domain.ConfirmationOutcome](t, rec)
	assert.Equal(t, domain.StateConfirmed, out.State)
	assert.Equal(t, "HEC-pi_5", out.Order.OrderNumber)
}

func TestConfirmation_MissingPaymentIntent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/checkout/confirmation", uuid.NewString(), nil)
	out := decodeData[domain.ConfirmationOutcome](t, rec)
	assert.Equal(t, domain.StateError, out.State)
	assert.Equal(t, domain.RedirectProfile, out.Redirect)
}

// ============================================================================
// Events
// ============================================================================

func TestCartEvents_StreamsChanges(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	s := uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/cart/events", nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, s)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	nextData := func() event.CartChanged {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed")
				if data, found := strings.CutPrefix(line, "data: "); found {
					var ev event.CartChanged
					require.NoError(t, json.Unmarshal([]byte(data), &ev))
					return ev
				}
			case <-deadline:
				t.Fatal("no cart event received")
			}
		}
	}

	initial := nextData()
	assert.Equal(t, 0, initial.TotalItems)

	require.Eventually(t, func() bool { return env.hub.Subscribers(s) == 1 }, time.Second, 5*time.Millisecond)
	env.do(t, http.MethodPost, "/api/cart/items", s, map[string]any{"productId": "peluche-kuromi", "quantity": 2})

	changed := nextData()
	assert.Equal(t, 2, changed.TotalItems)
	assert.Equal(t, int64(100_000), changed.Subtotal)

	cancel()
	require.Eventually(t, func() bool { return env.hub.Subscribers(s) == 0 }, 2*time.Second, 10*time.Millisecond)
}
