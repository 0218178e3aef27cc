package application

import (
	"context"
	"errors"
	"time"

	"blastcharge/internal/charging/application/events"
	charging "blastcharge/internal/charging/domain"
	drillhole "blastcharge/internal/drillhole/domain"
	"blastcharge/internal/observability/metrics"
)

// EventPublisher publishes charging lifecycle events. Nil publishers
// are tolerated; the engine works without eventing.
type EventPublisher interface {
	PublishChargingApplied(ctx context.Context, event events.ChargingApplied) error
	PublishChargingRescaled(ctx context.Context, event events.ChargingRescaled) error
	PublishChargingCleared(ctx context.Context, event events.ChargingCleared) error
}

// ErrHoleNotFound is returned when the referenced hole does not exist.
var ErrHoleNotFound = errors.New("charging service: hole not found")

// ChargingService orchestrates the template engine over the stores:
// full build on template application, in-place rescale on geometry
// edits, plus queries used by reporting.
type ChargingService struct {
	engine *TemplateEngine
	store  ChargingStore
	holes  drillhole.Repository
	bus    EventPublisher
}

// NewChargingService constructs a service.
func NewChargingService(engine *TemplateEngine, store ChargingStore, holes drillhole.Repository, bus EventPublisher) (*ChargingService, error) {
	if engine == nil {
		return nil, errors.New("charging service: nil engine")
	}
	if store == nil {
		return nil, errors.New("charging service: nil store")
	}
	if holes == nil {
		return nil, errors.New("charging service: nil hole repository")
	}
	return &ChargingService{engine: engine, store: store, holes: holes, bus: bus}, nil
}

// Apply builds a fresh column from the template, replacing any stored
// one, and returns it with its validation result.
func (s *ChargingService) Apply(ctx context.Context, entityName, holeID string, template Template) (*charging.HoleCharging, charging.ValidationResult, error) {
	start := time.Now()
	hole, err := s.holes.Get(ctx, entityName, holeID)
	if err != nil {
		metrics.ObserveTemplateApply(metrics.ResultError, time.Since(start))
		return nil, charging.ValidationResult{}, err
	}
	if hole == nil {
		metrics.ObserveTemplateApply(metrics.ResultError, time.Since(start))
		return nil, charging.ValidationResult{}, ErrHoleNotFound
	}

	column, err := s.engine.Apply(ctx, hole, template)
	if err != nil {
		metrics.ObserveTemplateApply(metrics.ResultError, time.Since(start))
		return nil, charging.ValidationResult{}, err
	}
	result := column.Validate()
	if err := s.store.Save(ctx, column); err != nil {
		metrics.ObserveTemplateApply(metrics.ResultError, time.Since(start))
		return nil, result, err
	}
	metrics.ObserveTemplateApply(metrics.ResultSuccess, time.Since(start))

	if s.bus != nil {
		_ = s.bus.PublishChargingApplied(ctx, events.ChargingApplied{
			EntityName:      entityName,
			HoleID:          holeID,
			TemplateName:    template.Name,
			DeckCount:       len(column.Decks),
			PrimerCount:     len(column.Primers),
			ExplosiveMassKg: column.TotalExplosiveMass(),
			At:              time.Now().UTC(),
		})
	}
	return column, result, nil
}

// Rescale reconciles a stored column with the hole's current geometry.
// It reports whether the column changed; an unchanged column is not
// rewritten.
func (s *ChargingService) Rescale(ctx context.Context, entityName, holeID string) (bool, error) {
	start := time.Now()
	hole, err := s.holes.Get(ctx, entityName, holeID)
	if err != nil {
		metrics.ObserveRescale(metrics.ResultError, time.Since(start))
		return false, err
	}
	if hole == nil {
		metrics.ObserveRescale(metrics.ResultError, time.Since(start))
		return false, ErrHoleNotFound
	}
	column, err := s.store.Get(ctx, entityName, holeID)
	if err != nil {
		metrics.ObserveRescale(metrics.ResultError, time.Since(start))
		return false, err
	}
	if column == nil {
		metrics.ObserveRescale(metrics.ResultError, time.Since(start))
		return false, charging.ErrNotFound
	}

	mismatch := column.CheckDimensionMismatch(hole)
	if !s.engine.Rescale(column, hole) {
		metrics.ObserveRescale(metrics.ResultSuccess, time.Since(start))
		return false, nil
	}
	if err := s.store.Save(ctx, column); err != nil {
		metrics.ObserveRescale(metrics.ResultError, time.Since(start))
		return true, err
	}
	metrics.ObserveRescale(metrics.ResultSuccess, time.Since(start))

	if s.bus != nil {
		_ = s.bus.PublishChargingRescaled(ctx, events.ChargingRescaled{
			EntityName:      entityName,
			HoleID:          holeID,
			LengthChanged:   mismatch.LengthChanged,
			DiameterChanged: mismatch.DiameterChanged,
			At:              time.Now().UTC(),
		})
	}
	return true, nil
}

// Get returns the stored column, charging.ErrNotFound when uncharged.
func (s *ChargingService) Get(ctx context.Context, entityName, holeID string) (*charging.HoleCharging, error) {
	column, err := s.store.Get(ctx, entityName, holeID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, charging.ErrNotFound
	}
	return column, nil
}

// List returns all stored columns for an entity.
func (s *ChargingService) List(ctx context.Context, entityName string) ([]*charging.HoleCharging, error) {
	return s.store.List(ctx, entityName)
}

// Clear removes a hole's column, returning it to the uncharged state.
func (s *ChargingService) Clear(ctx context.Context, entityName, holeID string) error {
	if err := s.store.Delete(ctx, entityName, holeID); err != nil {
		return err
	}
	if s.bus != nil {
		_ = s.bus.PublishChargingCleared(ctx, events.ChargingCleared{
			EntityName: entityName,
			HoleID:     holeID,
			At:         time.Now().UTC(),
		})
	}
	return nil
}

// PowderFactorReport is the per-hole mass/compliance summary.
type PowderFactorReport struct {
	EntityName      string
	HoleID          string
	ExplosiveMassKg float64
	Burden          float64
	Spacing         float64
	PowderFactor    float64
}

// PowderFactor computes the hole's powder factor from its stored
// column and the hole's burden and spacing.
func (s *ChargingService) PowderFactor(ctx context.Context, entityName, holeID string) (PowderFactorReport, error) {
	hole, err := s.holes.Get(ctx, entityName, holeID)
	if err != nil {
		return PowderFactorReport{}, err
	}
	if hole == nil {
		return PowderFactorReport{}, ErrHoleNotFound
	}
	column, err := s.Get(ctx, entityName, holeID)
	if err != nil {
		return PowderFactorReport{}, err
	}
	return PowderFactorReport{
		EntityName:      entityName,
		HoleID:          holeID,
		ExplosiveMassKg: column.TotalExplosiveMass(),
		Burden:          hole.Burden,
		Spacing:         hole.Spacing,
		PowderFactor:    column.PowderFactor(hole.Burden, hole.Spacing),
	}, nil
}
