package event

import (
	"context"
	"time"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

// CartChanged is published after every cart mutation.
type CartChanged struct {
	SessionID  string    `json:"sessionId"`
	TotalItems int       `json:"totalItems"`
	Subtotal   int64     `json:"subtotal"`
	At         time.Time `json:"at"`
	Origin     string    `json:"origin,omitempty"`
}

// NewCartChanged builds the notification for the cart's current state.
func NewCartChanged(cart *domain.Cart, at time.Time) CartChanged {
	return CartChanged{
		SessionID:  cart.SessionID,
		TotalItems: cart.TotalItems(),
		Subtotal:   cart.Subtotal(),
		At:         at.UTC(),
	}
}

// Publisher delivers cart change notifications to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev CartChanged) error
}
