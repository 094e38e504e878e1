package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemory keeps children in a map.
type InMemory struct {
	mu       sync.RWMutex
	children map[id.ChildID]*models.Child
}

func NewInMemory() *InMemory {
	return &InMemory{children: make(map[id.ChildID]*models.Child)}
}

func (s *InMemory) Create(_ context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.children[child.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.children[child.ID] = clone(child)
	return nil
}

func (s *InMemory) Update(_ context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.children[child.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.children[child.ID] = clone(child)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, childID id.ChildID) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	child, exists := s.children[childID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(child), nil
}

func (s *InMemory) List(_ context.Context, visibility id.Visibility) ([]*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Child
	for _, child := range s.children {
		if child.IsArchived() && !visibility.IncludesArchived() {
			continue
		}
		out = append(out, clone(child))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, childID id.ChildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.children[childID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.children, childID)
	return nil
}

func clone(c *models.Child) *models.Child {
	cp := *c
	if c.Gender != nil {
		g := *c.Gender
		cp.Gender = &g
	}
	if c.ArchivedAt != nil {
		t := *c.ArchivedAt
		cp.ArchivedAt = &t
	}
	return &cp
}
