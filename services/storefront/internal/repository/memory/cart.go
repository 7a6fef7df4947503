package memory

import (
	"context"
	"sync"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository"
)

// CartRepository keeps encoded carts in process memory. It backs local
// development without Redis.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewCartRepository creates an empty in-memory repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]byte)}
}

func (r *CartRepository) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.RLock()
	data, ok := r.carts[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return repository.DecodeCart(sessionID, data)
}

func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	data, err := repository.EncodeCart(cart)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.carts[cart.SessionID] = data
	r.mu.Unlock()
	return nil
}

func (r *CartRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
	return nil
}

// PutRaw stores raw bytes for a session without encoding them.
func (r *CartRepository) PutRaw(sessionID string, raw []byte) {
	r.mu.Lock()
	r.carts[sessionID] = raw
	r.mu.Unlock()
}
