package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single cart line.
	MaxQuantityPerLine = 100
	// MaxLinesPerCart is the maximum number of distinct products in a cart.
	MaxLinesPerCart = 50
)

// ProductCatalog resolves product data when a product is added.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// CartService implements the cart store for storefront sessions.
type CartService struct {
	repo      repository.CartRepository
	catalog   ProductCatalog
	publisher event.Publisher
	locks     *sessionLocks
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, catalog ProductCatalog, publisher event.Publisher, logger *slog.Logger) *CartService {
	return &CartService{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		locks:     newSessionLocks(),
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the session's cart. A missing or unreadable cart is empty.
func (s *CartService) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.load(ctx, sessionID)
}

// Add adds quantity units of a product, merging into an existing line.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve product %s: %w", productID, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	combined := quantity
	if i := cart.FindLine(product.ID); i >= 0 {
		combined += cart.Lines[i].Quantity
	} else if len(cart.Lines) >= MaxLinesPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d products", MaxLinesPerCart))
	}
	if combined > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
	}
	if combined > product.Stock {
		return nil, apperrors.InvalidInput(fmt.Sprintf("only %d units of %s are in stock", product.Stock, product.Name))
	}

	cart.Add(*product, quantity)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "cart line added",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", quantity),
	)
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. Values below 1 are
// clamped to 1; use Remove to delete a line. Raising a line re-checks the
// product's current stock.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	i := cart.FindLine(productID)
	if i < 0 {
		return nil, apperrors.NotFound("cart line", productID)
	}
	if quantity > cart.Lines[i].Quantity {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", productID, err)
		}
		if quantity > product.Stock {
			return nil, apperrors.InvalidInput(fmt.Sprintf("only %d units of %s are in stock", product.Stock, product.Name))
		}
	}
	cart.SetQuantity(productID, quantity)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove deletes the line for productID. Removing an absent product leaves
// the cart untouched.
func (s *CartService) Remove(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cart.Remove(productID) {
		return cart, nil
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear deletes the session's cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	cart := domain.NewCart(sessionID)
	s.notify(ctx, cart)
	s.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", sessionID))
	return nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		return domain.NewCart(sessionID), nil
	case errors.Is(err, repository.ErrCorruptCart):
		s.logger.WarnContext(ctx, "discarding unreadable cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return domain.NewCart(sessionID), nil
	default:
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if cart.Normalize() {
		s.logger.WarnContext(ctx, "normalized stored cart",
			slog.String("session_id", sessionID),
			slog.Int("lines", len(cart.Lines)),
		)
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.notify(ctx, cart)
	return nil
}

func (s *CartService) notify(ctx context.Context, cart *domain.Cart) {
	if err := s.publisher.Publish(ctx, event.NewCartChanged(cart, s.now())); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart change",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
