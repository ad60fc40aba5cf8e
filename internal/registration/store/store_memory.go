package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"escuela/internal/registration/models"
	"escuela/pkg/platform/sentinel"
)

// InMemory keeps registrations in process. Used for tests and local runs.
type InMemory struct {
	mu         sync.RWMutex
	records    []*models.Registration
	byIDNumber map[string]struct{}
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{byIDNumber: make(map[string]struct{})}
}

// Create stores reg unless its ID number is already present.
func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byIDNumber[reg.IDNumber]; ok {
		return fmt.Errorf("insert registration %s: %w", reg.IDNumber, sentinel.ErrConflict)
	}
	clone := *reg
	s.records = append(s.records, &clone)
	s.byIDNumber[reg.IDNumber] = struct{}{}
	return nil
}

func (s *InMemory) ExistsByIDNumber(_ context.Context, idNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byIDNumber[idNumber]
	return ok, nil
}

func (s *InMemory) List(_ context.Context, department string) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.records))
	for _, r := range s.records {
		if department == "" || r.Department == department {
			clone := *r
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) CountByDepartment(_ context.Context) ([]models.GroupCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.group(func(r *models.Registration) string { return r.Department })
	slices.SortFunc(groups, func(a, b models.GroupCount) int { return cmp.Compare(a.Key, b.Key) })
	return groups, nil
}

func (s *InMemory) CountByProfession(_ context.Context, limit int) ([]models.GroupCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := s.group(func(r *models.Registration) string { return r.Profession })
	slices.SortFunc(groups, func(a, b models.GroupCount) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *InMemory) Latest(ctx context.Context, limit int) ([]*models.Registration, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) Ping(context.Context) error  { return nil }
func (s *InMemory) Close(context.Context) error { return nil }

// group must be called with the lock held.
func (s *InMemory) group(key func(*models.Registration) string) []models.GroupCount {
	counts := make(map[string]int)
	for _, r := range s.records {
		counts[key(r)]++
	}
	groups := make([]models.GroupCount, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, models.GroupCount{Key: k, Total: n})
	}
	return groups
}

// sortNewestFirst orders by RegisteredAt descending; ties keep the most
// recently inserted record first.
func sortNewestFirst(regs []*models.Registration) {
	slices.Reverse(regs)
	slices.SortStableFunc(regs, func(a, b *models.Registration) int {
		return b.RegisteredAt.Compare(a.RegisteredAt)
	})
}
