package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	drillhole "blastcharge/internal/drillhole/domain"
)

// HoleRepository is an in-memory blast-hole repository.
type HoleRepository struct {
	mu   sync.RWMutex
	data map[string]drillhole.BlastHole
}

// NewHoleRepository constructs an empty repository.
func NewHoleRepository() *HoleRepository {
	return &HoleRepository{data: make(map[string]drillhole.BlastHole)}
}

func holeKey(entityName, holeID string) string {
	return entityName + "|" + holeID
}

// Get loads a hole, nil when absent.
func (r *HoleRepository) Get(ctx context.Context, entityName, holeID string) (*drillhole.BlastHole, error) {
	_ = ctx
	r.mu.RLock()
	hole, ok := r.data[holeKey(entityName, holeID)]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	copy := hole
	return &copy, nil
}

// List returns all holes for an entity ordered by hole id.
func (r *HoleRepository) List(ctx context.Context, entityName string) ([]drillhole.BlastHole, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var holes []drillhole.BlastHole
	for _, hole := range r.data {
		if hole.EntityName == entityName {
			holes = append(holes, hole)
		}
	}
	sort.Slice(holes, func(i, j int) bool { return holes[i].HoleID < holes[j].HoleID })
	return holes, nil
}

// Save upserts a hole.
func (r *HoleRepository) Save(ctx context.Context, hole *drillhole.BlastHole) error {
	_ = ctx
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
	r.mu.Lock()
	r.data[holeKey(hole.EntityName, hole.HoleID)] = *hole
	r.mu.Unlock()
	return nil
}
