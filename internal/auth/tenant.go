package auth

import (
	"context"
	"database/sql"
	"errors"
)

var (
	// ErrTenantMismatch indicates resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// EntityTenantChecker validates blast entity tenant ownership.
type EntityTenantChecker interface {
	EnsureEntityTenant(ctx context.Context, tenantID, entityName string) error
}

// EntityChecker checks blast entity ownership against the registry.
type EntityChecker struct {
	db *sql.DB
}

// NewEntityChecker constructs an EntityChecker.
func NewEntityChecker(db *sql.DB) *EntityChecker {
	if db == nil {
		return nil
	}
	return &EntityChecker{db: db}
}

// EnsureEntityTenant verifies the entity belongs to the tenant. An
// unregistered entity is treated as not found; ownership checks are
// skipped when either side is blank.
func (c *EntityChecker) EnsureEntityTenant(ctx context.Context, tenantID, entityName string) error {
	if c == nil || c.db == nil {
		return nil
	}
	if tenantID == "" || entityName == "" {
		return nil
	}
	var owner string
	err := c.db.QueryRowContext(ctx, `
SELECT tenant_id FROM blast_entities WHERE entity_name = $1 LIMIT 1`, entityName).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
