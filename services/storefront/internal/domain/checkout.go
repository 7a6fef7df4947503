package domain

import (
	"strings"
	"time"
)

// Views the storefront SPA is told to navigate to.
const (
	RedirectCart    = "/cart"
	RedirectLogin   = "/login"
	RedirectProfile = "/profile"
)

// ShippingForm is the checkout form as submitted by the customer.
type ShippingForm struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Address string `json:"address" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"omitempty,max=100"`
	Zip     string `json:"zip" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// Trimmed returns the form with surrounding whitespace removed from every
// field, so "   " does not satisfy a required field.
func (f ShippingForm) Trimmed() ShippingForm {
	return ShippingForm{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
		City:    strings.TrimSpace(f.City),
		State:   strings.TrimSpace(f.State),
		Zip:     strings.TrimSpace(f.Zip),
		Country: strings.TrimSpace(f.Country),
	}
}

// ShippingAddress is the address part of an order.
type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// ShippingAddress extracts the address fields of the form.
func (f ShippingForm) ShippingAddress() ShippingAddress {
	return ShippingAddress{
		Address: f.Address,
		City:    f.City,
		State:   f.State,
		ZipCode: f.Zip,
		Country: f.Country,
	}
}

// OrderDraft is the priced, addressed submission sent to create a payment
// intent. Items are a snapshot: prices are frozen at creation time.
type OrderDraft struct {
	Items           []CartLine      `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        int64           `json:"subtotal"`
	Shipping        int64           `json:"shipping"`
	Total           int64           `json:"total"`
}

// NewOrderDraft snapshots the cart and prices it.
func NewOrderDraft(cart *Cart, address ShippingAddress) OrderDraft {
	q := cart.Quote()
	return OrderDraft{
		Items:           cart.Snapshot(),
		ShippingAddress: address,
		Subtotal:        q.Subtotal,
		Shipping:        q.Shipping,
		Total:           q.Total,
	}
}

// Quote returns the draft's prices.
func (d OrderDraft) Quote() Quote {
	return Quote{Subtotal: d.Subtotal, Shipping: d.Shipping, Total: d.Total}
}

const secretSeparator = "_secret_"

// PaymentIntentHandle is what the payment widget needs to collect payment.
type PaymentIntentHandle struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
}

// ID returns the explicit payment intent id, falling back to the prefix of
// the client secret before "_secret_".
func (h PaymentIntentHandle) ID() string {
	if h.PaymentIntentID != "" {
		return h.PaymentIntentID
	}
	return PaymentIntentIDFromSecret(h.ClientSecret)
}

// PaymentIntentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
// A secret without the separator yields "".
func PaymentIntentIDFromSecret(secret string) string {
	id, _, ok := strings.Cut(secret, secretSeparator)
	if !ok {
		return ""
	}
	return id
}

// ConfirmedOrder is the durably recorded order, read back after payment.
type ConfirmedOrder struct {
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	Total           int64           `json:"total"`
	Items           []CartLine      `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
}
