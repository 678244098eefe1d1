package subject

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

// MemRepo is a mutex-guarded in-memory Repository for development and tests.
type MemRepo struct {
	mu       sync.RWMutex
	subjects map[uuid.UUID]*Subject
}

func NewMemRepo() *MemRepo {
	return &MemRepo{subjects: make(map[uuid.UUID]*Subject)}
}

func (r *MemRepo) Create(_ context.Context, s *Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	r.subjects[s.ID] = &cp
	return nil
}

func (r *MemRepo) GetByID(_ context.Context, id uuid.UUID) (*Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: subject", scheduling.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *MemRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*Subject
	for _, s := range r.subjects {
		if s.OwnerID != nil && *s.OwnerID == ownerID {
			cp := *s
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}
