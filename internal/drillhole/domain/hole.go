package drillhole

import (
	"context"
	"errors"
	"time"
)

// BlastHole is the geometry record for a single drilled hole. Depths
// run from the collar; HoleLength is signed and negative for upholes,
// and all deck depths follow the hole's sign convention.
type BlastHole struct {
	HoleID         string
	EntityName     string
	HoleDiameterMm float64
	HoleLength     float64
	BenchHeight    float64
	SubdrillLength float64
	Burden         float64
	Spacing        float64

	ShortHoleOverride          *bool
	ShortHoleThresholdOverride *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks hole invariants.
func (h BlastHole) Validate() error {
	if h.HoleID == "" {
		return errors.New("hole: empty id")
	}
	if h.EntityName == "" {
		return errors.New("hole: empty entity name")
	}
	if h.HoleDiameterMm <= 0 {
		return errors.New("hole: non-positive diameter")
	}
	return nil
}

// Repository manages blast-hole persistence.
type Repository interface {
	Get(ctx context.Context, entityName, holeID string) (*BlastHole, error)
	List(ctx context.Context, entityName string) ([]BlastHole, error)
	Save(ctx context.Context, hole *BlastHole) error
}
