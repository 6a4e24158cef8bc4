package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// ErrNotFound indicates the product or variant is unknown to the store.
var ErrNotFound = errors.New("product not found")

// Product carries the pricing attributes the terminal needs for a cart
// line: both tender prices and whether the item is taxable.
type Product struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CardPrice money.Money `json:"cardPrice"`
	CashPrice money.Money `json:"cashPrice"`
	Taxable   bool        `json:"taxable"`
	Variants  []Variant   `json:"variants,omitempty"`
}

// Variant overrides the product prices for one variant.
type Variant struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CardPrice money.Money `json:"cardPrice"`
	CashPrice money.Money `json:"cashPrice"`
}

// Source supplies products, typically the store back office sync.
type Source interface {
	Product(ctx context.Context, id string) (Product, error)
}

// StaticSource is an in-memory Source seeded at startup.
type StaticSource struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewStaticSource builds a source from the given products.
func NewStaticSource(products ...Product) *StaticSource {
	s := &StaticSource{products: make(map[string]Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Put inserts or replaces a product.
func (s *StaticSource) Put(p Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}

// Product implements Source.
func (s *StaticSource) Product(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	p, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// Service resolves products through a read-through cache in front of the
// configured source.
type Service struct {
	Source Source
	Cache  *Cache
}

// Product returns the product for the given id, preferring the cache.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Source == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	var cached Product
	ok, err := s.Cache.GetProduct(ctx, id, &cached)
	if err == nil && ok {
		return cached, nil
	}
	p, err := s.Source.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.SetProduct(ctx, p)
	return p, nil
}

// Prices resolves the dual unit prices and taxability for a product and
// optional variant.
func (s *Service) Prices(ctx context.Context, productID string, variantID string) (card, cash money.Money, taxable bool, err error) {
	p, err := s.Product(ctx, productID)
	if err != nil {
		return money.Zero, money.Zero, false, err
	}
	if variantID == "" {
		return p.CardPrice, p.CashPrice, p.Taxable, nil
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v.CardPrice, v.CashPrice, p.Taxable, nil
		}
	}
	return money.Zero, money.Zero, false, fmt.Errorf("variant %s: %w", variantID, ErrNotFound)
}
