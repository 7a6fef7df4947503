package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Mock UserRepository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

// --- Mock TokenIssuer ---

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Issue(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context, category string) ([]domain.Product, error) {
	args := m.Called(ctx, category)
	p, _ := args.Get(0).([]domain.Product)
	return p, args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockProductRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	args := m.Called(ctx, ids)
	p, _ := args.Get(0).(map[string]domain.Product)
	return p, args.Error(1)
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepository) Seed(ctx context.Context, products []domain.Product) (int, error) {
	args := m.Called(ctx, products)
	return args.Int(0), args.Error(1)
}

// --- Mock DraftRepository ---

type mockDraftRepository struct {
	mock.Mock
}

func (m *mockDraftRepository) Create(ctx context.Context, draft *domain.CheckoutDraft) error {
	return m.Called(ctx, draft).Error(0)
}

func (m *mockDraftRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.CheckoutDraft, error) {
	args := m.Called(ctx, paymentIntentID)
	d, _ := args.Get(0).(*domain.CheckoutDraft)
	return d, args.Error(1)
}

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateFromDraft(ctx context.Context, paymentIntentID string, newOrder func(*domain.CheckoutDraft) *domain.Order) (*domain.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if d, ok := args.Get(0).(*domain.CheckoutDraft); ok {
		return newOrder(d), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	o, _ := args.Get(0).([]domain.Order)
	return o, args.Int(1), args.Error(2)
}

// --- Mock Provider ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "test" }

func (m *mockProvider) CreateIntent(ctx context.Context, input *provider.IntentInput) (*provider.Intent, error) {
	args := m.Called(ctx, input)
	in, _ := args.Get(0).(*provider.Intent)
	return in, args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*provider.WebhookEvent)
	return ev, args.Error(1)
}

// --- Mock PaymentPublisher ---

type mockPaymentPublisher struct {
	mock.Mock
}

func (m *mockPaymentPublisher) PublishPaymentSucceeded(ctx context.Context, ev *provider.WebhookEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// --- Fixtures ---

func kuromi() domain.Product {
	return domain.Product{ID: "peluche-kuromi", Name: "Peluche Kuromi", Price: 50000, Stock: 10, ImageURL: "/k.jpg"}
}

func pocky() domain.Product {
	return domain.Product{ID: "pocky-fresa", Name: "Pocky Fresa", Price: 9000, Stock: 2}
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{Address: "Calle 1 #2-3", City: "Bogotá", ZipCode: "110111", Country: "CO"}
}
