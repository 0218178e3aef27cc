package postgres

import (
	"context"
	"database/sql"
	"errors"

	catalog "blastcharge/internal/catalog/domain"
)

// ProductRepository persists catalog products.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository constructs a repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, category, density, color_hex, diameter_mm, length_mm, mass_grams, vod_ms, initiator_type`

// GetByID fetches a product by id, nil when absent.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+productColumns+`
FROM catalog_products
WHERE id = $1
LIMIT 1`, id)
	return scanProduct(row)
}

// GetByName fetches a product by exact name, nil when absent.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*catalog.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+productColumns+`
FROM catalog_products
WHERE name = $1
LIMIT 1`, name)
	return scanProduct(row)
}

// List returns all products ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("product repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+productColumns+`
FROM catalog_products
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Density, &p.ColorHex,
			&p.DiameterMm, &p.LengthMm, &p.MassGrams, &p.VodMs, &p.InitiatorType); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Save upserts a product.
func (r *ProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if r == nil || r.db == nil {
		return errors.New("product repo: nil db")
	}
	if product == nil {
		return errors.New("product repo: nil product")
	}
	if err := product.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO catalog_products (
	id, name, category, density, color_hex, diameter_mm, length_mm, mass_grams, vod_ms, initiator_type
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	density = EXCLUDED.density,
	color_hex = EXCLUDED.color_hex,
	diameter_mm = EXCLUDED.diameter_mm,
	length_mm = EXCLUDED.length_mm,
	mass_grams = EXCLUDED.mass_grams,
	vod_ms = EXCLUDED.vod_ms,
	initiator_type = EXCLUDED.initiator_type`,
		product.ID, product.Name, product.Category, product.Density, product.ColorHex,
		product.DiameterMm, product.LengthMm, product.MassGrams, product.VodMs, product.InitiatorType)
	return err
}

func scanProduct(row *sql.Row) (*catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Density, &p.ColorHex,
		&p.DiameterMm, &p.LengthMm, &p.MassGrams, &p.VodMs, &p.InitiatorType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
