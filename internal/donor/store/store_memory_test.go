package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

type DonorStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *DonorStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestDonorStoreSuite(t *testing.T) {
	suite.Run(t, new(DonorStoreSuite))
}

func (s *DonorStoreSuite) newDonor(name, email string) *models.Donor {
	donor, err := models.NewDonor(id.NewDonorID(), name, email, "", models.Address{}, time.Now())
	s.Require().NoError(err)
	return donor
}

// TestCreationAndLookups verifies the store correctly creates and retrieves donors.
func (s *DonorStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds donor by id", func() {
		donor := s.newDonor("Jane Doe", "jane@example.org")
		s.Require().NoError(s.store.Create(s.ctx, donor))

		found, err := s.store.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Equal(donor.Name, found.Name)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewDonorID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds donor by email case-insensitively", func() {
		donor := s.newDonor("Casey", "Casey@Example.org")
		s.Require().NoError(s.store.Create(s.ctx, donor))

		found, err := s.store.FindByEmail(s.ctx, "casey@example.org")
		s.Require().NoError(err)
		s.Equal(donor.ID, found.ID)
	})
}

// TestLiveEmailUniqueness verifies the live-email slot semantics: archiving a
// donor frees their address for a new live record.
func (s *DonorStoreSuite) TestLiveEmailUniqueness() {
	s.Run("rejects a second live donor with the same email", func() {
		first := s.newDonor("First", "shared@example.org")
		second := s.newDonor("Second", "shared@example.org")
		s.Require().NoError(s.store.Create(s.ctx, first))

		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("archived donor frees the email slot", func() {
		first := s.newDonor("First", "freed@example.org")
		s.Require().NoError(s.store.Create(s.ctx, first))
		first.Archive(time.Now())
		s.Require().NoError(s.store.Update(s.ctx, first))

		second := s.newDonor("Second", "freed@example.org")
		s.Require().NoError(s.store.Create(s.ctx, second))
	})

	s.Run("archived donor does not satisfy email lookup", func() {
		donor := s.newDonor("Gone", "gone@example.org")
		s.Require().NoError(s.store.Create(s.ctx, donor))
		donor.Archive(time.Now())
		s.Require().NoError(s.store.Update(s.ctx, donor))

		_, err := s.store.FindByEmail(s.ctx, "gone@example.org")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestListVisibility verifies archived filtering and the unconditional
// exclusion of merged-away donors.
func (s *DonorStoreSuite) TestListVisibility() {
	s.Run("default listing hides archived donors", func() {
		live := s.newDonor("Live", "live@example.org")
		archived := s.newDonor("Archived", "archived@example.org")
		s.Require().NoError(s.store.Create(s.ctx, live))
		s.Require().NoError(s.store.Create(s.ctx, archived))
		archived.Archive(time.Now())
		s.Require().NoError(s.store.Update(s.ctx, archived))

		donors, err := s.store.List(s.ctx, id.VisibilityDefault)
		s.Require().NoError(err)
		s.Len(donors, 1)
		s.Equal(live.ID, donors[0].ID)

		donors, err = s.store.List(s.ctx, id.VisibilityIncludeArchived)
		s.Require().NoError(err)
		s.Len(donors, 2)
	})

	s.Run("merged donors never appear, even with archived included", func() {
		s.store = NewInMemory()
		survivor := s.newDonor("Survivor", "survivor@example.org")
		loser := s.newDonor("Loser", "loser@example.org")
		s.Require().NoError(s.store.Create(s.ctx, survivor))
		s.Require().NoError(s.store.Create(s.ctx, loser))

		loser.MergeInto(survivor.ID, time.Now())
		s.Require().NoError(s.store.Update(s.ctx, loser))

		donors, err := s.store.List(s.ctx, id.VisibilityIncludeArchived)
		s.Require().NoError(err)
		s.Len(donors, 1)
		s.Equal(survivor.ID, donors[0].ID)
	})
}
