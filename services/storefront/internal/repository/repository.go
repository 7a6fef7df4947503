package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

// ErrCorruptCart is returned when the stored representation of a cart
// cannot be decoded.
var ErrCorruptCart = errors.New("corrupt cart data")

// CartRepository persists one cart per session.
type CartRepository interface {
	// Get returns the session's cart, a NotFound AppError when none is
	// stored, or an error wrapping ErrCorruptCart for undecodable data.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save overwrites the session's cart.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the session's cart. Deleting a missing cart is not an
	// error.
	Delete(ctx context.Context, sessionID string) error
}

// storedCart is the persisted form of a cart, shared by all backends.
type storedCart struct {
	Lines     []domain.CartLine `json:"lines"`
	UpdatedAt int64             `json:"updatedAt,omitempty"`
}

// EncodeCart serializes a cart for storage.
func EncodeCart(cart *domain.Cart) ([]byte, error) {
	stored := storedCart{Lines: cart.Lines}
	if !cart.UpdatedAt.IsZero() {
		stored.UpdatedAt = cart.UpdatedAt.UnixMilli()
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal cart: %w", err)
	}
	return data, nil
}

// DecodeCart parses stored cart data. Undecodable data yields an error
// wrapping ErrCorruptCart. Lines are returned as stored; callers normalize.
func DecodeCart(sessionID string, data []byte) (*domain.Cart, error) {
	var stored storedCart
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w: %v", sessionID, ErrCorruptCart, err)
	}
	cart := domain.NewCart(sessionID)
	if stored.Lines != nil {
		cart.Lines = stored.Lines
	}
	if stored.UpdatedAt > 0 {
		cart.UpdatedAt = time.UnixMilli(stored.UpdatedAt).UTC()
	}
	return cart, nil
}
