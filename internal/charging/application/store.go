package application

import (
	"context"

	charging "blastcharge/internal/charging/domain"
)

// ChargingStore persists charge columns keyed by (entityName, holeID).
// Get returns nil when the hole has never been charged.
type ChargingStore interface {
	Get(ctx context.Context, entityName, holeID string) (*charging.HoleCharging, error)
	Save(ctx context.Context, column *charging.HoleCharging) error
	Delete(ctx context.Context, entityName, holeID string) error
	List(ctx context.Context, entityName string) ([]*charging.HoleCharging, error)
}
