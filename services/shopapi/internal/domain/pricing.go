package domain

// Shipping is free strictly above FreeShippingThreshold.
const (
	FreeShippingThreshold int64 = 100_000
	ShippingFee           int64 = 10_000
)

// Pricing is the server-side price breakdown of a checkout.
type Pricing struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// ComputeShipping returns the shipping charge for a subtotal.
func ComputeShipping(subtotal int64) int64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

// PriceItems sums the items and applies the shipping rule.
func PriceItems(items []OrderItem) Pricing {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	shipping := ComputeShipping(subtotal)
	return Pricing{Subtotal: subtotal, Shipping: shipping, Total: subtotal + shipping}
}

// Matches reports whether the client-submitted shipping and total agree
// with the server's figures.
func (p Pricing) Matches(shipping, total int64) bool {
	return p.Shipping == shipping && p.Total == total
}
