package domain

import "strings"

// Catalog indexes products by id for outer-join lookups.
type Catalog struct {
	byID  map[string]Product
	order []string
}

func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		byID:  make(map[string]Product, len(products)),
		order: make([]string, 0, len(products)),
	}
	for _, p := range products {
		if _, exists := c.byID[p.ProductID]; exists {
			continue
		}
		c.byID[p.ProductID] = p
		c.order = append(c.order, p.ProductID)
	}
	return c
}

// Lookup returns the product and whether it exists.
func (c *Catalog) Lookup(productID string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.byID[productID]
	return p, ok
}

// CategoryOf resolves the category bucket for a product id. Missing products and
// blank categories resolve to CategoryUnknown.
func (c *Catalog) CategoryOf(productID string) string {
	p, ok := c.Lookup(productID)
	if !ok {
		return CategoryUnknown
	}
	category := strings.TrimSpace(p.Category)
	if category == "" {
		return CategoryUnknown
	}
	return category
}

// NameOf returns the product name, or nil when the product is unknown.
func (c *Catalog) NameOf(productID string) *string {
	p, ok := c.Lookup(productID)
	if !ok {
		return nil
	}
	name := p.ProductName
	return &name
}

// Products returns catalog entries in insertion order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
