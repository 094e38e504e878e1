package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	donationmodels "github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	sponsorshipmodels "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

type MergeSuite struct {
	suite.Suite
	ctx          context.Context
	donors       *donorstore.InMemory
	donations    *donationstore.InMemory
	sponsorships *sponsorshipstore.InMemory
	sink         *audit.MemorySink
	service      *Service
}

func TestMergeSuite(t *testing.T) {
	suite.Run(t, new(MergeSuite))
}

func (s *MergeSuite) SetupTest() {
	s.ctx = context.Background()
	s.donors = donorstore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	s.sponsorships = sponsorshipstore.NewInMemory()
	s.sink = audit.NewMemorySink()
	s.service = New(s.donors, s.donations, s.sponsorships, nil,
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)
}

func (s *MergeSuite) newDonor(name, email, phone string) *models.Donor {
	donor, err := models.NewDonor(id.NewDonorID(), name, email, phone, models.Address{}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.donors.Create(s.ctx, donor))
	return donor
}

func (s *MergeSuite) newDonation(donorID id.DonorID) *donationmodels.Donation {
	d, err := donationmodels.NewDonation(id.NewDonationID(), donorID, id.NewProjectID(), 2500,
		time.Now(), donationmodels.MethodCheck, donationmodels.StatusSucceeded, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.donations.Create(s.ctx, d))
	return d
}

func (s *MergeSuite) newSponsorship(donorID id.DonorID, childID id.ChildID, amountCents int64) *sponsorshipmodels.Sponsorship {
	sp, err := sponsorshipmodels.NewSponsorship(id.NewSponsorshipID(), donorID, childID, id.NewProjectID(),
		amountCents, time.Now(), time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.sponsorships.CreateIfVacant(s.ctx, sp))
	return sp
}

// TestMerge walks a three-way merge: the first listed donor survives, the
// selected fields come from a loser, and everything the losers owned moves.
func (s *MergeSuite) TestMerge() {
	survivor := s.newDonor("John Doe", "john@example.org", "555-0001")
	dup := s.newDonor("Jon Doe", "jon.doe@example.org", "555-0002")
	stale := s.newDonor("J. Doe", "jdoe@old-example.org", "")

	s.newDonation(dup.ID)
	s.newDonation(stale.ID)
	child := id.NewChildID()
	s.newSponsorship(dup.ID, child, 3500)

	result, err := s.service.Merge(s.ctx,
		[]id.DonorID{survivor.ID, dup.ID, stale.ID},
		map[string]id.DonorID{FieldName: dup.ID, FieldEmail: dup.ID},
	)
	s.Require().NoError(err)

	s.Run("survivor keeps selected fields and its own remainder", func() {
		s.Equal(survivor.ID, result.Survivor.ID)
		s.Equal("Jon Doe", result.Survivor.Name)
		s.Equal("jon.doe@example.org", result.Survivor.Email)
		s.Equal("555-0001", result.Survivor.Phone)
	})

	s.Run("ownership moves to the survivor", func() {
		s.Equal([]id.DonorID{dup.ID, stale.ID}, result.MergedIDs)
		s.Equal(2, result.DonationsReassigned)
		s.Equal(1, result.SponsorshipsReassigned)

		count, err := s.sponsorships.ActiveCountByDonor(s.ctx, survivor.ID)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("losers are archived with a merged marker", func() {
		loser, err := s.donors.FindByID(s.ctx, dup.ID)
		s.Require().NoError(err)
		s.Require().NotNil(loser.MergedInto)
		s.Equal(survivor.ID, *loser.MergedInto)
		s.NotNil(loser.ArchivedAt)
	})

	s.Run("losers vanish from listings even with archived included", func() {
		donors, err := s.service.List(s.ctx, id.VisibilityIncludeArchived)
		s.Require().NoError(err)
		s.Require().Len(donors, 1)
		s.Equal(survivor.ID, donors[0].ID)
	})

	s.Run("lookup of a merged id resolves to the survivor", func() {
		got, err := s.service.Get(s.ctx, stale.ID)
		s.Require().NoError(err)
		s.Equal(survivor.ID, got.ID)
	})
}

// TestMergeFreesEmailSlot verifies that taking a loser's email does not trip
// the live-email uniqueness rule: losers are archived before the survivor's
// update claims it.
func (s *MergeSuite) TestMergeFreesEmailSlot() {
	survivor := s.newDonor("John Doe", "john@example.org", "")
	dup := s.newDonor("Jon Doe", "jon.doe@example.org", "")

	result, err := s.service.Merge(s.ctx,
		[]id.DonorID{survivor.ID, dup.ID},
		map[string]id.DonorID{FieldEmail: dup.ID},
	)
	s.Require().NoError(err)
	s.Equal("jon.doe@example.org", result.Survivor.Email)
}

func (s *MergeSuite) TestConflictingSponsorshipsBlockMerge() {
	survivor := s.newDonor("John Doe", "john@example.org", "")
	dup := s.newDonor("Jon Doe", "jon.doe@example.org", "")
	child := id.NewChildID()
	s.newSponsorship(survivor.ID, child, 3500)
	s.newSponsorship(dup.ID, child, 3500)

	_, err := s.service.Merge(s.ctx, []id.DonorID{survivor.ID, dup.ID}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	loser, findErr := s.donors.FindByID(s.ctx, dup.ID)
	s.Require().NoError(findErr)
	s.Nil(loser.MergedInto, "a refused merge must leave the loser untouched")
}

func (s *MergeSuite) TestConflictBetweenLosersLeavesAllUntouched() {
	// The survivor is clean; the conflict sits entirely between the two
	// losers. The merge must refuse before reassigning the first of them.
	survivor := s.newDonor("John Doe", "john@example.org", "")
	first := s.newDonor("Jon Doe", "jon.doe@example.org", "")
	second := s.newDonor("J. Doe", "j.doe@example.org", "")
	child := id.NewChildID()
	firstSponsorship := s.newSponsorship(first.ID, child, 3500)
	secondSponsorship := s.newSponsorship(second.ID, child, 3500)

	_, err := s.service.Merge(s.ctx, []id.DonorID{survivor.ID, first.ID, second.ID}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	for _, loserID := range []id.DonorID{first.ID, second.ID} {
		loser, findErr := s.donors.FindByID(s.ctx, loserID)
		s.Require().NoError(findErr)
		s.Nil(loser.MergedInto)
		s.False(loser.IsArchived())
	}

	kept, findErr := s.sponsorships.FindByID(s.ctx, firstSponsorship.ID)
	s.Require().NoError(findErr)
	s.Equal(first.ID, kept.DonorID, "no sponsorship may move during a refused merge")
	kept, findErr = s.sponsorships.FindByID(s.ctx, secondSponsorship.ID)
	s.Require().NoError(findErr)
	s.Equal(second.ID, kept.DonorID)
}

func (s *MergeSuite) TestMergeValidation() {
	donor := s.newDonor("John Doe", "john@example.org", "")
	other := s.newDonor("Jon Doe", "jon.doe@example.org", "")
	outsider := s.newDonor("Outsider", "outsider@example.org", "")

	s.Run("fewer than two donors", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate donor id", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, donor.ID}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("zero donor id", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, {}}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown merge field", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, other.ID},
			map[string]id.DonorID{"shoe_size": donor.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("selection from outside the merge list", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, other.ID},
			map[string]id.DonorID{FieldName: outsider.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown participant", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, id.NewDonorID()}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("participant already merged away", func() {
		_, err := s.service.Merge(s.ctx, []id.DonorID{donor.ID, other.ID}, nil)
		s.Require().NoError(err)

		_, err = s.service.Merge(s.ctx, []id.DonorID{outsider.ID, other.ID}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *MergeSuite) TestMergeAuditEvent() {
	survivor := s.newDonor("John Doe", "john@example.org", "")
	dup := s.newDonor("Jon Doe", "jon.doe@example.org", "")

	_, err := s.service.Merge(s.ctx, []id.DonorID{survivor.ID, dup.ID}, nil)
	s.Require().NoError(err)

	events := s.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionDonorMerged, events[0].Action)
	s.Equal(survivor.ID.String(), events[0].EntityID)
}
