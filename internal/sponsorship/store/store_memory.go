package store

import (
	"context"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemory keeps sponsorships in a map. CreateIfVacant mirrors the Postgres
// partial unique key on (donor, child, amount) for active rows so the
// allocator behaves identically against either store.
type InMemory struct {
	mu           sync.RWMutex
	sponsorships map[id.SponsorshipID]*models.Sponsorship
}

func NewInMemory() *InMemory {
	return &InMemory{sponsorships: make(map[id.SponsorshipID]*models.Sponsorship)}
}

// CreateIfVacant inserts the sponsorship unless an active one already holds
// the (donor, child, amount) slot, in which case it returns ErrConflict and
// writes nothing.
func (s *InMemory) CreateIfVacant(_ context.Context, sp *models.Sponsorship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sponsorships[sp.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if sp.IsActive() {
		for _, existing := range s.sponsorships {
			if existing.IsActive() &&
				existing.DonorID == sp.DonorID &&
				existing.ChildID == sp.ChildID &&
				existing.MonthlyAmountCents == sp.MonthlyAmountCents {
				return sentinel.ErrConflict
			}
		}
	}
	s.sponsorships[sp.ID] = clone(sp)
	return nil
}

func (s *InMemory) Update(_ context.Context, sp *models.Sponsorship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sponsorships[sp.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.sponsorships[sp.ID] = clone(sp)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, exists := s.sponsorships[sponsorshipID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(sp), nil
}

// FindActiveMatch returns the open sponsorship for (donor, child) at exactly
// the given amount. Ended sponsorships never match.
func (s *InMemory) FindActiveMatch(_ context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64) (*models.Sponsorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.sponsorships {
		if sp.IsActive() && sp.DonorID == donorID && sp.ChildID == childID && sp.MonthlyAmountCents == amountCents {
			return clone(sp), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ActiveCountByDonor(_ context.Context, donorID id.DonorID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sp := range s.sponsorships {
		if sp.IsActive() && sp.DonorID == donorID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) ActiveCountByChild(_ context.Context, childID id.ChildID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sp := range s.sponsorships {
		if sp.IsActive() && sp.ChildID == childID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) ActiveCountByProject(_ context.Context, projectID id.ProjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sp := range s.sponsorships {
		if sp.IsActive() && sp.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) ExistsForDonor(_ context.Context, donorID id.DonorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.sponsorships {
		if sp.DonorID == donorID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ExistsForChild(_ context.Context, childID id.ChildID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.sponsorships {
		if sp.ChildID == childID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ExistsForProject(_ context.Context, projectID id.ProjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.sponsorships {
		if sp.ProjectID == projectID {
			return true, nil
		}
	}
	return false, nil
}

// ActiveSlotConflicts reports whether any two of the given donors hold active
// sponsorships for the same (child, amount) slot. Merging such donors would
// violate the vacancy invariant, so callers check before moving rows.
func (s *InMemory) ActiveSlotConflicts(_ context.Context, donorIDs []id.DonorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[id.DonorID]struct{}, len(donorIDs))
	for _, donorID := range donorIDs {
		owners[donorID] = struct{}{}
	}

	type slot struct {
		child  id.ChildID
		amount int64
	}
	seen := make(map[slot]struct{})
	for _, sp := range s.sponsorships {
		if !sp.IsActive() {
			continue
		}
		if _, ok := owners[sp.DonorID]; !ok {
			continue
		}
		key := slot{child: sp.ChildID, amount: sp.MonthlyAmountCents}
		if _, dup := seen[key]; dup {
			return true, nil
		}
		seen[key] = struct{}{}
	}
	return false, nil
}

// ReassignDonor moves every sponsorship owned by from to the surviving donor.
// Returns the number of rows moved, or ErrConflict when the move would give
// the survivor two active sponsorships for the same (child, amount).
func (s *InMemory) ReassignDonor(_ context.Context, from, to id.DonorID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sp := range s.sponsorships {
		if !sp.IsActive() || sp.DonorID != from {
			continue
		}
		for _, existing := range s.sponsorships {
			if existing.IsActive() && existing.DonorID == to &&
				existing.ChildID == sp.ChildID &&
				existing.MonthlyAmountCents == sp.MonthlyAmountCents {
				return 0, sentinel.ErrConflict
			}
		}
	}

	moved := 0
	for _, sp := range s.sponsorships {
		if sp.DonorID == from {
			sp.DonorID = to
			moved++
		}
	}
	return moved, nil
}

func clone(sp *models.Sponsorship) *models.Sponsorship {
	cp := *sp
	if sp.EndDate != nil {
		t := *sp.EndDate
		cp.EndDate = &t
	}
	return &cp
}
