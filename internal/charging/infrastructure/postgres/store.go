package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	charging "blastcharge/internal/charging/domain"
)

// ChargingStore persists charge columns as JSON documents keyed by
// (entity_name, hole_id). The document round-trips the aggregate
// exactly; derived values (masses, powder factor) are never stored.
type ChargingStore struct {
	db *sql.DB
}

// NewChargingStore constructs a store.
func NewChargingStore(db *sql.DB) *ChargingStore {
	return &ChargingStore{db: db}
}

// Get loads a column, nil when the hole has never been charged.
func (s *ChargingStore) Get(ctx context.Context, entityName, holeID string) (*charging.HoleCharging, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("charging store: nil db")
	}
	var (
		document  []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
SELECT document, created_at, updated_at
FROM hole_chargings
WHERE entity_name = $1 AND hole_id = $2
LIMIT 1`, entityName, holeID).Scan(&document, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	column, err := decodeColumn(document)
	if err != nil {
		return nil, err
	}
	column.CreatedAt = createdAt
	column.UpdatedAt = updatedAt
	return column, nil
}

// Save upserts a column.
func (s *ChargingStore) Save(ctx context.Context, column *charging.HoleCharging) error {
	if s == nil || s.db == nil {
		return errors.New("charging store: nil db")
	}
	if column == nil {
		return errors.New("charging store: nil column")
	}
	now := time.Now().UTC()
	if column.CreatedAt.IsZero() {
		column.CreatedAt = now
	}
	column.UpdatedAt = now
	document, err := encodeColumn(column)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO hole_chargings (entity_name, hole_id, document, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (entity_name, hole_id) DO UPDATE SET
	document = EXCLUDED.document,
	updated_at = EXCLUDED.updated_at`,
		column.EntityName, column.HoleID, document, column.CreatedAt, column.UpdatedAt)
	return err
}

// Delete removes a column; deleting an absent column is a no-op.
func (s *ChargingStore) Delete(ctx context.Context, entityName, holeID string) error {
	if s == nil || s.db == nil {
		return errors.New("charging store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
DELETE FROM hole_chargings
WHERE entity_name = $1 AND hole_id = $2`, entityName, holeID)
	return err
}

// List returns all columns for an entity ordered by hole id.
func (s *ChargingStore) List(ctx context.Context, entityName string) ([]*charging.HoleCharging, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("charging store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT document, created_at, updated_at
FROM hole_chargings
WHERE entity_name = $1
ORDER BY hole_id`, entityName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*charging.HoleCharging
	for rows.Next() {
		var (
			document  []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&document, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		column, err := decodeColumn(document)
		if err != nil {
			return nil, err
		}
		column.CreatedAt = createdAt
		column.UpdatedAt = updatedAt
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func encodeColumn(column *charging.HoleCharging) ([]byte, error) {
	return json.Marshal(toDocument(column))
}

func decodeColumn(data []byte) (*charging.HoleCharging, error) {
	var doc chargingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}
