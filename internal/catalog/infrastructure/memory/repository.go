package memory

import (
	"context"
	"errors"
	"sync"

	catalog "blastcharge/internal/catalog/domain"
)

// ProductRepository is an in-memory product repository.
type ProductRepository struct {
	mu     sync.RWMutex
	byID   map[string]catalog.Product
	byName map[string]catalog.Product
}

// NewProductRepository constructs an empty repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		byID:   make(map[string]catalog.Product),
		byName: make(map[string]catalog.Product),
	}
}

// NewSeededProductRepository constructs a repository holding a default
// product set so the service is usable without a database.
func NewSeededProductRepository() *ProductRepository {
	repo := NewProductRepository()
	for _, product := range DefaultProducts() {
		p := product
		_ = repo.Save(context.Background(), &p)
	}
	return repo
}

// DefaultProducts returns the built-in seed catalog.
func DefaultProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "prod-anfo", Name: "ANFO", Category: catalog.CategoryBulk, Density: 0.85, ColorHex: "#E8A33D", VodMs: 4200},
		{ID: "prod-emulsion", Name: "Emulsion 70/30", Category: catalog.CategoryBulk, Density: 1.15, ColorHex: "#C44536", VodMs: 5200},
		{ID: "prod-stemming", Name: "Stemming", Category: catalog.CategoryInert, Density: 1.8, ColorHex: "#8B8B83"},
		{ID: "prod-air", Name: "Air", Category: catalog.CategoryInert, Density: 0, ColorHex: "#FFFFFF"},
		{ID: "prod-water", Name: "Water", Category: catalog.CategoryInert, Density: 1.0, ColorHex: "#4A90D9"},
		{ID: "prod-booster-400", Name: "Booster 400g", Category: catalog.CategoryBooster, Density: 1.6, DiameterMm: 65, LengthMm: 140, MassGrams: 400},
		{ID: "prod-det-ms", Name: "MS Detonator", Category: catalog.CategoryDetonator, Density: 0, InitiatorType: "electronic", VodMs: 0},
		{ID: "prod-cord-10", Name: "Detonating Cord 10g/m", Category: catalog.CategoryDetonator, Density: 0, VodMs: 6500},
	}
}

// GetByID returns a product by id, nil when absent.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx
	r.mu.RLock()
	product, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	copy := product
	return &copy, nil
}

// GetByName returns a product by exact name, nil when absent.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*catalog.Product, error) {
	_ = ctx
	r.mu.RLock()
	product, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	copy := product
	return &copy, nil
}

// List returns all products.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	products := make([]catalog.Product, 0, len(r.byID))
	for _, product := range r.byID {
		products = append(products, product)
	}
	return products, nil
}

// Save upserts a product.
func (r *ProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	_ = ctx
	if product == nil {
		return errors.New("product repo: nil product")
	}
	if err := product.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.byID[product.ID] = *product
	r.byName[product.Name] = *product
	r.mu.Unlock()
	return nil
}
