package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// OrderStatusProcessed is the status of an order whose payment succeeded.
const OrderStatusProcessed = "processed"

// OrderNumberPrefix prefixes every human-facing order number.
const OrderNumberPrefix = "HEC-"

// OrderItem is one priced line of a draft or an order.
type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	ImageURL  string `json:"imageUrl"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is UnitPrice × Quantity.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Address string `json:"address" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"omitempty,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// Order is a paid, durably recorded purchase.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        int64           `json:"subtotal"`
	Shipping        int64           `json:"shipping"`
	Total           int64           `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewOrderNumber returns a sortable, unique order number such as
// HEC-01J9Z3K8Q5V6W7X8Y9Z0ABCDEF.
func NewOrderNumber() string {
	return OrderNumberPrefix + ulid.Make().String()
}

// NewOrderFromDraft materializes a processed order from a consumed draft.
func NewOrderFromDraft(id string, d *CheckoutDraft, now time.Time) *Order {
	items := make([]OrderItem, len(d.Items))
	copy(items, d.Items)
	return &Order{
		ID:              id,
		OrderNumber:     NewOrderNumber(),
		UserID:          d.UserID,
		PaymentIntentID: d.PaymentIntentID,
		Status:          OrderStatusProcessed,
		Items:           items,
		ShippingAddress: d.ShippingAddress,
		Subtotal:        d.Subtotal,
		Shipping:        d.Shipping,
		Total:           d.Total,
		CreatedAt:       now,
	}
}
