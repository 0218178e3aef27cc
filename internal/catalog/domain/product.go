package catalog

import (
	"context"
	"errors"
)

const (
	CategoryBulk      = "bulk"
	CategoryPackaged  = "packaged"
	CategoryBooster   = "booster"
	CategoryDetonator = "detonator"
	CategoryInert     = "inert"
)

// Product represents an explosive or inert product in the catalog.
// Density is g/cc; physical dimensions are millimetres and grams.
type Product struct {
	ID            string
	Name          string
	Category      string
	Density       float64
	ColorHex      string
	DiameterMm    float64
	LengthMm      float64
	MassGrams     float64
	VodMs         float64
	InitiatorType string
}

// Validate checks product invariants.
func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product: empty id")
	}
	if p.Name == "" {
		return errors.New("product: empty name")
	}
	if p.Density < 0 {
		return errors.New("product: negative density")
	}
	return nil
}

// Repository manages product persistence.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}

// Catalog resolves product references for the charging engine. A
// missing or unresolved reference degrades to a name-only stub with
// density 0 rather than failing the resolution pass.
type Catalog struct {
	repo Repository
}

// NewCatalog constructs a catalog over a repository.
func NewCatalog(repo Repository) (*Catalog, error) {
	if repo == nil {
		return nil, errors.New("catalog: nil repository")
	}
	return &Catalog{repo: repo}, nil
}

// Resolve finds a product by exact name, then by ID. Unknown references
// return a stub carrying only the reference as name.
func (c *Catalog) Resolve(ctx context.Context, ref string) Product {
	if c == nil || ref == "" {
		return Product{Name: ref}
	}
	if product, err := c.repo.GetByName(ctx, ref); err == nil && product != nil {
		return *product
	}
	if product, err := c.repo.GetByID(ctx, ref); err == nil && product != nil {
		return *product
	}
	return Product{Name: ref}
}

// ProductDensity implements the formula evaluator's density lookup.
// Engine resolution is synchronous, so a background context is fine.
func (c *Catalog) ProductDensity(name string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	product, err := c.repo.GetByName(context.Background(), name)
	if err != nil || product == nil {
		return 0, false
	}
	return product.Density, true
}
