package repository

import (
	"context"
	"errors"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
)

// ErrDraftConsumed is returned when an order was already created from a draft.
var ErrDraftConsumed = errors.New("checkout draft already consumed")

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A taken email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProductRepository defines the interface for catalog persistence operations.
type ProductRepository interface {
	// List returns the catalog ordered by name, optionally filtered by category.
	List(ctx context.Context, category string) ([]domain.Product, error)

	// GetByID retrieves one product.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetMany returns the products with the given ids keyed by id. Unknown
	// ids are absent from the map.
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)

	// Seed inserts products, skipping ids that already exist.
	Seed(ctx context.Context, products []domain.Product) (int, error)
}

// DraftRepository defines the interface for checkout draft persistence.
type DraftRepository interface {
	// Create stores a draft keyed by its payment intent id.
	Create(ctx context.Context, draft *domain.CheckoutDraft) error

	// GetByPaymentIntent retrieves the draft recorded for a payment intent.
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.CheckoutDraft, error)
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// CreateFromDraft locks the draft for paymentIntentID, inserts the order
	// built by newOrder, decrements stock and marks the draft consumed in one
	// transaction. A draft that was already consumed yields ErrDraftConsumed.
	CreateFromDraft(ctx context.Context, paymentIntentID string, newOrder func(*domain.CheckoutDraft) *domain.Order) (*domain.Order, error)

	// GetByPaymentIntent retrieves the order paid by a payment intent.
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error)

	// ListByUser returns one page of a user's orders, newest first, and the
	// user's total order count.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error)
}
