package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	childmodels "github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	childstore "github.com/mlongerich/DonationTracker-sub003/internal/child/store"
	donationmodels "github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshipmodels "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

type LifecycleSuite struct {
	suite.Suite
	ctx          context.Context
	donors       *donorstore.InMemory
	children     *childstore.InMemory
	projects     *projectstore.InMemory
	sponsorships *sponsorshipstore.InMemory
	donations    *donationstore.InMemory
	sink         *audit.MemorySink
	service      *Service

	generalFund *projectmodels.Project
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.donors = donorstore.NewInMemory()
	s.children = childstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.sponsorships = sponsorshipstore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	s.sink = audit.NewMemorySink()
	s.service = New(s.donors, s.children, s.projects, s.sponsorships, s.donations, nil,
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)

	fund, err := projectstore.SeedGeneralFund(s.ctx, s.projects)
	s.Require().NoError(err)
	s.generalFund = fund
}

func (s *LifecycleSuite) newDonor(name, email string) *donormodels.Donor {
	donor, err := donormodels.NewDonor(id.NewDonorID(), name, email, "", donormodels.Address{}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.donors.Create(s.ctx, donor))
	return donor
}

func (s *LifecycleSuite) newChild(name string) *childmodels.Child {
	child, err := childmodels.NewChild(id.NewChildID(), name, nil, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.children.Create(s.ctx, child))
	return child
}

func (s *LifecycleSuite) newProject(title string) *projectmodels.Project {
	project, err := projectmodels.NewProject(id.NewProjectID(), title, projectmodels.TypeGeneral, false, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.projects.Create(s.ctx, project))
	return project
}

func (s *LifecycleSuite) newSponsorship(donorID id.DonorID, childID id.ChildID, projectID id.ProjectID) *sponsorshipmodels.Sponsorship {
	sp, err := sponsorshipmodels.NewSponsorship(id.NewSponsorshipID(), donorID, childID, projectID, 3500, time.Now(), time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.sponsorships.CreateIfVacant(s.ctx, sp))
	return sp
}

func (s *LifecycleSuite) newDonation(donorID id.DonorID, projectID id.ProjectID) *donationmodels.Donation {
	d, err := donationmodels.NewDonation(id.NewDonationID(), donorID, projectID, 2500, time.Now(), donationmodels.MethodCheck, donationmodels.StatusSucceeded, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.donations.Create(s.ctx, d))
	return d
}

func (s *LifecycleSuite) TestArchiveAndRestore() {
	donor := s.newDonor("Pat Donor", "pat@example.org")

	s.Run("archive marks the record", func() {
		s.Require().NoError(s.service.Archive(s.ctx, id.EntityDonor, donor.ID.String()))

		got, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.NotNil(got.ArchivedAt)
	})

	s.Run("archiving twice conflicts", func() {
		err := s.service.Archive(s.ctx, id.EntityDonor, donor.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.ErrorContains(err, "donor is already archived")
	})

	s.Run("restore clears the marker", func() {
		s.Require().NoError(s.service.Restore(s.ctx, id.EntityDonor, donor.ID.String()))

		got, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Require().NoError(err)
		s.Nil(got.ArchivedAt)
	})

	s.Run("restoring a live record conflicts", func() {
		err := s.service.Restore(s.ctx, id.EntityDonor, donor.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.ErrorContains(err, "donor is not archived")
	})
}

// TestActiveSponsorshipBlocksArchive verifies the cascade guard on every side
// of an open pledge: the donor, the child, and the dedicated project all
// refuse to archive until the pledge ends.
func (s *LifecycleSuite) TestActiveSponsorshipBlocksArchive() {
	donor := s.newDonor("Pat Donor", "pat@example.org")
	child := s.newChild("Amara")
	project := s.newProject("Sponsor Amara")
	sp := s.newSponsorship(donor.ID, child.ID, project.ID)

	cases := []struct {
		entity  id.EntityType
		rawID   string
		blocker string
	}{
		{id.EntityDonor, donor.ID.String(), "donor has active sponsorships"},
		{id.EntityChild, child.ID.String(), "child has active sponsorships"},
		{id.EntityProject, project.ID.String(), "project has active sponsorships"},
	}
	for _, tc := range cases {
		s.Run(string(tc.entity), func() {
			err := s.service.Archive(s.ctx, tc.entity, tc.rawID)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.ErrorContains(err, tc.blocker)
		})
	}

	s.Run("ending the pledge unblocks the child", func() {
		got, err := s.sponsorships.FindByID(s.ctx, sp.ID)
		s.Require().NoError(err)
		s.Require().NoError(got.End(time.Now(), time.Now()))
		s.Require().NoError(s.sponsorships.Update(s.ctx, got))

		s.Require().NoError(s.service.Archive(s.ctx, id.EntityChild, child.ID.String()))
	})
}

func (s *LifecycleSuite) TestHardDelete() {
	s.Run("clean donor is removed", func() {
		donor := s.newDonor("Ephemeral", "ephemeral@example.org")
		s.Require().NoError(s.service.HardDelete(s.ctx, id.EntityDonor, donor.ID.String()))

		_, err := s.donors.FindByID(s.ctx, donor.ID)
		s.Error(err)
	})

	s.Run("donation history blocks deletion", func() {
		donor := s.newDonor("Giver", "giver@example.org")
		s.newDonation(donor.ID, s.generalFund.ID)

		err := s.service.HardDelete(s.ctx, id.EntityDonor, donor.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "donor has donation history")
	})

	s.Run("sponsorship history blocks deletion even after the pledge ends", func() {
		donor := s.newDonor("Sponsor", "sponsor@example.org")
		child := s.newChild("Jonas")
		project := s.newProject("Sponsor Jonas")
		sp := s.newSponsorship(donor.ID, child.ID, project.ID)
		s.Require().NoError(sp.End(time.Now(), time.Now()))
		s.Require().NoError(s.sponsorships.Update(s.ctx, sp))

		err := s.service.HardDelete(s.ctx, id.EntityDonor, donor.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "donor has sponsorship history")
	})
}

func (s *LifecycleSuite) TestSystemProjectIsProtected() {
	s.Run("archive refused", func() {
		err := s.service.Archive(s.ctx, id.EntityProject, s.generalFund.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "system projects cannot be archived")
	})

	s.Run("delete refused", func() {
		err := s.service.HardDelete(s.ctx, id.EntityProject, s.generalFund.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "system projects cannot be deleted")
	})
}

func (s *LifecycleSuite) TestMergedDonorIsFrozen() {
	survivor := s.newDonor("Survivor", "survivor@example.org")
	loser := s.newDonor("Loser", "loser@example.org")
	loser.MergeInto(survivor.ID, time.Now())
	s.Require().NoError(s.donors.Update(s.ctx, loser))

	for name, op := range map[string]func(context.Context, id.EntityType, string) error{
		"archive": s.service.Archive,
		"restore": s.service.Restore,
		"delete":  s.service.HardDelete,
	} {
		s.Run(name, func() {
			err := op(s.ctx, id.EntityDonor, loser.ID.String())
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.ErrorContains(err, "donor has been merged into another record")
		})
	}
}

func (s *LifecycleSuite) TestInputErrors() {
	s.Run("unknown entity type", func() {
		err := s.service.Archive(s.ctx, id.EntityType("invoice"), id.NewDonorID().String())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed id", func() {
		err := s.service.Archive(s.ctx, id.EntityDonor, "not-a-uuid")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown id", func() {
		err := s.service.Archive(s.ctx, id.EntityChild, id.NewChildID().String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestAuditEvents() {
	child := s.newChild("Amara")
	s.Require().NoError(s.service.Archive(s.ctx, id.EntityChild, child.ID.String()))
	s.Require().NoError(s.service.Restore(s.ctx, id.EntityChild, child.ID.String()))

	events := s.sink.Events()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionEntityArchived, events[0].Action)
	s.Equal(audit.ActionEntityRestored, events[1].Action)
	s.Equal("child", events[0].EntityType)
	s.Equal(child.ID.String(), events[0].EntityID)
}
