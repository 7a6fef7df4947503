package domain

// Quote is the priced summary of a cart.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// ComputeShipping returns 0 when subtotal is strictly above the free
// shipping threshold and the flat fee otherwise.
func ComputeShipping(subtotal int64) int64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

// NewQuote prices a subtotal.
func NewQuote(subtotal int64) Quote {
	shipping := ComputeShipping(subtotal)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}
