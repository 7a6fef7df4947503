package domain

import "time"

// Business constants, in COP (integer pesos, no subunits).
const (
	FreeShippingThreshold int64 = 100_000
	ShippingFee           int64 = 10_000
)

// CartLine is one product in a cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	ImageURL  string `json:"imageUrl"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is unitPrice × quantity.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is the pending purchase of one session. Lines keep insertion order
// and hold at most one line per product.
type Cart struct {
	SessionID string     `json:"-"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewCart returns an empty cart for the session.
func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Lines: []CartLine{}}
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	var n int
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the sum of all line totals.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.LineTotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLine returns the index of the line for productID, or -1.
func (c *Cart) FindLine(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges quantity into the line for product, appending a new line when
// the product is not yet in the cart. Name, price and image are refreshed
// from product on merge.
func (c *Cart) Add(product Product, quantity int) {
	if i := c.FindLine(product.ID); i >= 0 {
		line := &c.Lines[i]
		line.Quantity += quantity
		line.Name = product.Name
		line.UnitPrice = product.Price
		line.ImageURL = product.ImageURL
		return
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		ImageURL:  product.ImageURL,
		Quantity:  quantity,
	})
}

// SetQuantity sets the quantity of an existing line, clamping values below 1
// to 1. It reports false when the product is not in the cart.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	i := c.FindLine(productID)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = max(quantity, 1)
	return true
}

// Remove deletes the line for productID and reports whether one existed.
func (c *Cart) Remove(productID string) bool {
	i := c.FindLine(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// Normalize restores the cart invariants on data loaded from storage:
// duplicate product lines are merged into the first occurrence and lines
// with a quantity below 1 are dropped. It reports whether anything changed.
func (c *Cart) Normalize() bool {
	changed := false
	lines := make([]CartLine, 0, len(c.Lines))
	index := make(map[string]int, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity < 1 || l.ProductID == "" {
			changed = true
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			lines[i].Quantity += l.Quantity
			changed = true
			continue
		}
		index[l.ProductID] = len(lines)
		lines = append(lines, l)
	}
	c.Lines = lines
	return changed
}

// Snapshot returns a copy of the lines, so later cart mutations do not
// affect it.
func (c *Cart) Snapshot() []CartLine {
	out := make([]CartLine, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// Quote prices the cart as it is now.
func (c *Cart) Quote() Quote {
	return NewQuote(c.Subtotal())
}

// CartView is the JSON shape of a cart with its derived totals.
type CartView struct {
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"totalItems"`
	Subtotal   int64      `json:"subtotal"`
	Shipping   int64      `json:"shipping"`
	Total      int64      `json:"total"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// View computes the cart's derived totals for rendering.
func (c *Cart) View() CartView {
	q := c.Quote()
	v := CartView{
		Lines:      c.Snapshot(),
		TotalItems: c.TotalItems(),
		Subtotal:   q.Subtotal,
		Shipping:   q.Shipping,
		Total:      q.Total,
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}
