package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
)

// --- Mocks ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreatePaymentIntent(ctx context.Context, token string, draft domain.OrderDraft) (domain.PaymentIntentHandle, error) {
	args := m.Called(ctx, token, draft)
	return args.Get(0).(domain.PaymentIntentHandle), args.Error(1)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) OrderByPaymentIntent(ctx context.Context, token, paymentIntentID string) (*domain.ConfirmedOrder, error) {
	args := m.Called(ctx, token, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConfirmedOrder), args.Error(1)
}

type mockClearer struct {
	mock.Mock
}

func (m *mockClearer) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// recordingPublisher keeps every published change.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.CartChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.CartChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) published() []event.CartChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.CartChanged, len(p.events))
	copy(out, p.events)
	return out
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func kuromi() *domain.Product {
	return &domain.Product{ID: "peluche-kuromi", Name: "Peluche Kuromi", Price: 50_000, ImageURL: "/img/kuromi.png", Stock: 10}
}

func cartWith(sessionID string, product *domain.Product, qty int) *domain.Cart {
	cart := domain.NewCart(sessionID)
	cart.Add(*product, qty)
	return cart
}
