package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemory keeps donors in a map. It mirrors the Postgres store's contract,
// including live-email uniqueness and merged-donor exclusion from listings.
type InMemory struct {
	mu     sync.RWMutex
	donors map[id.DonorID]*models.Donor
}

func NewInMemory() *InMemory {
	return &InMemory{donors: make(map[id.DonorID]*models.Donor)}
}

func (s *InMemory) Create(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.donors[donor.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if s.liveEmailTaken(donor.Email, donor.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.donors[donor.ID] = clone(donor)
	return nil
}

func (s *InMemory) Update(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.donors[donor.ID]; !exists {
		return sentinel.ErrNotFound
	}
	if !donor.IsArchived() && s.liveEmailTaken(donor.Email, donor.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.donors[donor.ID] = clone(donor)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	donor, exists := s.donors[donorID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(donor), nil
}

// FindByEmail matches non-archived donors only; archived records never block
// or satisfy an email lookup.
func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, donor := range s.donors {
		if !donor.IsArchived() && strings.EqualFold(donor.Email, email) {
			return clone(donor), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List applies the explicit visibility predicate. Merged-away donors are
// excluded under every visibility.
func (s *InMemory) List(_ context.Context, visibility id.Visibility) ([]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Donor
	for _, donor := range s.donors {
		if donor.IsMerged() {
			continue
		}
		if donor.IsArchived() && !visibility.IncludesArchived() {
			continue
		}
		out = append(out, clone(donor))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.donors[donorID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.donors, donorID)
	return nil
}

func (s *InMemory) liveEmailTaken(email string, self id.DonorID) bool {
	for _, donor := range s.donors {
		if donor.ID != self && !donor.IsArchived() && strings.EqualFold(donor.Email, email) {
			return true
		}
	}
	return false
}

func clone(d *models.Donor) *models.Donor {
	cp := *d
	if d.ArchivedAt != nil {
		t := *d.ArchivedAt
		cp.ArchivedAt = &t
	}
	if d.MergedInto != nil {
		m := *d.MergedInto
		cp.MergedInto = &m
	}
	return &cp
}
