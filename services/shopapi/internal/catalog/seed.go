// Package catalog loads the product catalog seed.
package catalog

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/slug"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"imageUrl"`
	Stock       int    `yaml:"stock"`
	Brand       string `yaml:"brand"`
}

// LoadSeed decodes a YAML catalog. Products without an explicit id get the
// slug of their name. Every product is validated and ids must be unique.
func LoadSeed(r io.Reader) ([]domain.Product, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}

	products := make([]domain.Product, 0, len(f.Products))
	seen := make(map[string]struct{}, len(f.Products))
	for _, sp := range f.Products {
		p := domain.Product{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			Price:       sp.Price,
			Category:    sp.Category,
			ImageURL:    sp.ImageURL,
			Stock:       sp.Stock,
			Brand:       sp.Brand,
		}
		if p.ID == "" {
			p.ID = slug.Generate(p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog seed: %w", err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog seed: duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, nil
}
