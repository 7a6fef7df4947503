package domain

import (
	"fmt"
	"strings"
)

// Product is a catalog entry. Prices are whole Colombian pesos.
type Product struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	Stock       int    `json:"stock"`
	Brand       string `json:"brand"`
}

// Validate checks the fields a sellable product needs.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product %q: id is required", p.Name)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %s: name is required", p.ID)
	}
	if p.Price <= 0 {
		return fmt.Errorf("product %s: price must be positive", p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %s: stock must not be negative", p.ID)
	}
	return nil
}
