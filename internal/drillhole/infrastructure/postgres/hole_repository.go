package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	drillhole "blastcharge/internal/drillhole/domain"
)

// HoleRepository persists blast holes.
type HoleRepository struct {
	db *sql.DB
}

// NewHoleRepository constructs a repository.
func NewHoleRepository(db *sql.DB) *HoleRepository {
	return &HoleRepository{db: db}
}

const holeColumns = `hole_id, entity_name, hole_diameter_mm, hole_length, bench_height, subdrill_length,
	burden, spacing, short_hole_override, short_hole_threshold_override, created_at, updated_at`

// Get fetches a hole by entity and id, nil when absent.
func (r *HoleRepository) Get(ctx context.Context, entityName, holeID string) (*drillhole.BlastHole, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("hole repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+holeColumns+`
FROM blast_holes
WHERE entity_name = $1 AND hole_id = $2
LIMIT 1`, entityName, holeID)
	return scanHole(row)
}

// List returns all holes for an entity ordered by hole id.
func (r *HoleRepository) List(ctx context.Context, entityName string) ([]drillhole.BlastHole, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("hole repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+holeColumns+`
FROM blast_holes
WHERE entity_name = $1
ORDER BY hole_id`, entityName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holes []drillhole.BlastHole
	for rows.Next() {
		hole, err := scanHoleRows(rows)
		if err != nil {
			return nil, err
		}
		holes = append(holes, *hole)
	}
	return holes, rows.Err()
}

// Save upserts a hole.
func (r *HoleRepository) Save(ctx context.Context, hole *drillhole.BlastHole) error {
	if r == nil || r.db == nil {
		return errors.New("hole repo: nil db")
	}
	if hole == nil {
		return errors.New("hole repo: nil hole")
	}
	if err := hole.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if hole.CreatedAt.IsZero() {
		hole.CreatedAt = now
	}
	hole.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
INSERT INTO blast_holes (
	hole_id, entity_name, hole_diameter_mm, hole_length, bench_height, subdrill_length,
	burden, spacing, short_hole_override, short_hole_threshold_override, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (entity_name, hole_id) DO UPDATE SET
	hole_diameter_mm = EXCLUDED.hole_diameter_mm,
	hole_length = EXCLUDED.hole_length,
	bench_height = EXCLUDED.bench_height,
	subdrill_length = EXCLUDED.subdrill_length,
	burden = EXCLUDED.burden,
	spacing = EXCLUDED.spacing,
	short_hole_override = EXCLUDED.short_hole_override,
	short_hole_threshold_override = EXCLUDED.short_hole_threshold_override,
	updated_at = EXCLUDED.updated_at`,
		hole.HoleID, hole.EntityName, hole.HoleDiameterMm, hole.HoleLength, hole.BenchHeight, hole.SubdrillLength,
		hole.Burden, hole.Spacing, hole.ShortHoleOverride, hole.ShortHoleThresholdOverride, hole.CreatedAt, hole.UpdatedAt)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHole(row *sql.Row) (*drillhole.BlastHole, error) {
	hole, err := scanHoleRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return hole, err
}

func scanHoleRows(row scanner) (*drillhole.BlastHole, error) {
	var h drillhole.BlastHole
	var override sql.NullBool
	var threshold sql.NullFloat64
	err := row.Scan(&h.HoleID, &h.EntityName, &h.HoleDiameterMm, &h.HoleLength, &h.BenchHeight, &h.SubdrillLength,
		&h.Burden, &h.Spacing, &override, &threshold, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if override.Valid {
		value := override.Bool
		h.ShortHoleOverride = &value
	}
	if threshold.Valid {
		value := threshold.Float64
		h.ShortHoleThresholdOverride = &value
	}
	return &h, nil
}
