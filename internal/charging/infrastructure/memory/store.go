package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	charging "blastcharge/internal/charging/domain"
)

// ChargingStore is an in-memory charge column store. Columns are
// cloned on both read and write so callers never share deck slices
// with the store.
type ChargingStore struct {
	mu   sync.RWMutex
	data map[string]*charging.HoleCharging
}

// NewChargingStore constructs an empty store.
func NewChargingStore() *ChargingStore {
	return &ChargingStore{data: make(map[string]*charging.HoleCharging)}
}

func chargingKey(entityName, holeID string) string {
	return entityName + "|" + holeID
}

// Get loads a column, nil when the hole has never been charged.
func (s *ChargingStore) Get(ctx context.Context, entityName, holeID string) (*charging.HoleCharging, error) {
	_ = ctx
	s.mu.RLock()
	column, ok := s.data[chargingKey(entityName, holeID)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return column.Clone(), nil
}

// Save upserts a column.
func (s *ChargingStore) Save(ctx context.Context, column *charging.HoleCharging) error {
	_ = ctx
	if column == nil {
		return errors.New("charging store: nil column")
	}
	now := time.Now().UTC()
	if column.CreatedAt.IsZero() {
		column.CreatedAt = now
	}
	column.UpdatedAt = now
	s.mu.Lock()
	s.data[chargingKey(column.EntityName, column.HoleID)] = column.Clone()
	s.mu.Unlock()
	return nil
}

// Delete removes a column; deleting an absent column is a no-op.
func (s *ChargingStore) Delete(ctx context.Context, entityName, holeID string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.data, chargingKey(entityName, holeID))
	s.mu.Unlock()
	return nil
}

// List returns all columns for an entity ordered by hole id.
func (s *ChargingStore) List(ctx context.Context, entityName string) ([]*charging.HoleCharging, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var columns []*charging.HoleCharging
	for _, column := range s.data {
		if column.EntityName == entityName {
			columns = append(columns, column.Clone())
		}
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].HoleID < columns[j].HoleID })
	return columns, nil
}
