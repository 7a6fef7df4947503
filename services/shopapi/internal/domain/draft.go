package domain

import "time"

// Draft statuses.
const (
	DraftStatusPending  = "pending"
	DraftStatusConsumed = "consumed"
)

// CheckoutDraft is the repriced checkout recorded when a payment intent is
// created. It becomes an order once the payment succeeds.
type CheckoutDraft struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        int64           `json:"subtotal"`
	Shipping        int64           `json:"shipping"`
	Total           int64           `json:"total"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	ConsumedAt      *time.Time      `json:"consumedAt,omitempty"`
}

// Consumed reports whether an order was already created from the draft.
func (d *CheckoutDraft) Consumed() bool {
	return d.Status == DraftStatusConsumed
}
