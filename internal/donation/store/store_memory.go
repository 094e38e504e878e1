package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemory is a map-backed donation store for unit tests and local runs. It
// mirrors the Postgres store's semantics, including the partial-index
// duplicate guard on (external subscription id, child id).
type InMemory struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
}

func NewInMemory() *InMemory {
	return &InMemory{donations: make(map[id.DonationID]*models.Donation)}
}

// Create inserts the donation. When both the external subscription id and the
// child id are set and another kept donation already holds that pair, it
// returns sentinel.ErrConflict without writing.
func (s *InMemory) Create(ctx context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[d.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if d.ExternalSubscriptionID != nil && d.ChildID != nil {
		for _, existing := range s.donations {
			if existing.ExternalSubscriptionID != nil && existing.ChildID != nil &&
				*existing.ExternalSubscriptionID == *d.ExternalSubscriptionID &&
				*existing.ChildID == *d.ChildID {
				return sentinel.ErrConflict
			}
		}
	}
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *InMemory) Update(ctx context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDonation(d), nil
}

// FindByExternalInvoiceID locates the donation ingested from the given
// provider invoice. Matching is exact; invoices keyed elsewhere miss.
func (s *InMemory) FindByExternalInvoiceID(ctx context.Context, externalInvoiceID string) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.donations {
		if d.ExternalInvoiceID != nil && *d.ExternalInvoiceID == externalInvoiceID {
			return cloneDonation(d), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListPendingReview returns donations whose settlement outcome needs operator
// attention, oldest first.
func (s *InMemory) ListPendingReview(ctx context.Context) ([]*models.Donation, error) {
	return s.list(func(d *models.Donation) bool { return d.Status != models.StatusSucceeded }), nil
}

// ListActive returns succeeded donations, oldest first.
func (s *InMemory) ListActive(ctx context.Context) ([]*models.Donation, error) {
	return s.list(func(d *models.Donation) bool { return d.Status == models.StatusSucceeded }), nil
}

// ListBySubscription returns every donation carrying the given external
// subscription id, oldest first.
func (s *InMemory) ListBySubscription(ctx context.Context, externalSubscriptionID string) ([]*models.Donation, error) {
	return s.list(func(d *models.Donation) bool {
		return d.ExternalSubscriptionID != nil && *d.ExternalSubscriptionID == externalSubscriptionID
	}), nil
}

func (s *InMemory) ExistsForDonor(ctx context.Context, donorID id.DonorID) (bool, error) {
	return s.exists(func(d *models.Donation) bool { return d.DonorID == donorID }), nil
}

func (s *InMemory) ExistsForChild(ctx context.Context, childID id.ChildID) (bool, error) {
	return s.exists(func(d *models.Donation) bool { return d.ChildID != nil && *d.ChildID == childID }), nil
}

func (s *InMemory) ExistsForProject(ctx context.Context, projectID id.ProjectID) (bool, error) {
	return s.exists(func(d *models.Donation) bool { return d.ProjectID == projectID }), nil
}

// ExistsSubscriptionForOtherChild reports whether some donation carries the
// same external subscription id against a different child. A nil child id
// counts as different from any concrete one. This feeds the advisory
// duplicate flag only; it never blocks a write.
func (s *InMemory) ExistsSubscriptionForOtherChild(ctx context.Context, externalSubscriptionID string, childID *id.ChildID) (bool, error) {
	return s.exists(func(d *models.Donation) bool {
		if d.ExternalSubscriptionID == nil || *d.ExternalSubscriptionID != externalSubscriptionID {
			return false
		}
		switch {
		case d.ChildID == nil && childID == nil:
			return false
		case d.ChildID == nil || childID == nil:
			return true
		default:
			return *d.ChildID != *childID
		}
	}), nil
}

// ReassignDonor moves every donation owned by from to the surviving donor and
// reports how many rows moved.
func (s *InMemory) ReassignDonor(ctx context.Context, from, to id.DonorID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := 0
	for _, d := range s.donations {
		if d.DonorID == from {
			d.DonorID = to
			moved++
		}
	}
	return moved, nil
}

func (s *InMemory) list(keep func(*models.Donation) bool) []*models.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Donation
	for _, d := range s.donations {
		if keep(d) {
			out = append(out, cloneDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	return out
}

func (s *InMemory) exists(match func(*models.Donation) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.donations {
		if match(d) {
			return true
		}
	}
	return false
}

func cloneDonation(d *models.Donation) *models.Donation {
	out := *d
	if d.SponsorshipID != nil {
		v := *d.SponsorshipID
		out.SponsorshipID = &v
	}
	if d.ChildID != nil {
		v := *d.ChildID
		out.ChildID = &v
	}
	if d.ExternalSubscriptionID != nil {
		v := *d.ExternalSubscriptionID
		out.ExternalSubscriptionID = &v
	}
	if d.ExternalInvoiceID != nil {
		v := *d.ExternalInvoiceID
		out.ExternalInvoiceID = &v
	}
	if d.ExternalChargeID != nil {
		v := *d.ExternalChargeID
		out.ExternalChargeID = &v
	}
	return &out
}
