package service

import (
	"context"
	"errors"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Allocation is the result of matching a donation to a pledge.
type Allocation struct {
	Sponsorship *models.Sponsorship
	Created     bool
}

// Allocate finds the donor's active pledge for the child at the given amount,
// or creates one together with its dedicated project. Must run inside the
// caller's transaction; the caller owns metrics and audit for the outcome.
//
// A different amount never touches the existing pledge: the old one stays
// active (or ended) and a new row is opened. Ended pledges are never matched.
// When a concurrent request wins the insert race the store reports a conflict
// and this allocator re-reads and reuses the winning row, so callers never
// see CodeConflict from here.
func (s *Service) Allocate(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64, startDate time.Time) (Allocation, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Allocation{}, dErrors.New(dErrors.CodeNotFound, "child not found")
		}
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child")
	}
	if child.IsArchived() {
		return Allocation{}, dErrors.New(dErrors.CodeValidation, "child is archived")
	}

	match, err := s.sponsorships.FindActiveMatch(ctx, donorID, childID, amountCents)
	if err == nil {
		return Allocation{Sponsorship: match}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to match sponsorship")
	}

	now := requestcontext.Now(ctx)
	project, err := projectmodels.NewSponsorshipProject(id.NewProjectID(), child.Name, now)
	if err != nil {
		return Allocation{}, err
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision sponsorship project")
	}

	sp, err := models.NewSponsorship(id.NewSponsorshipID(), donorID, childID, project.ID, amountCents, startDate, now)
	if err != nil {
		return Allocation{}, err
	}
	if err := s.sponsorships.CreateIfVacant(ctx, sp); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.reuseWinner(ctx, donorID, childID, amountCents, project.ID)
		}
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sponsorship")
	}
	return Allocation{Sponsorship: sp, Created: true}, nil
}

// reuseWinner handles a lost insert race: the provisional project is removed
// and the row the concurrent request created is adopted.
func (s *Service) reuseWinner(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64, provisional id.ProjectID) (Allocation, error) {
	if err := s.projects.Delete(ctx, provisional); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to discard provisional project")
	}
	winner, err := s.sponsorships.FindActiveMatch(ctx, donorID, childID, amountCents)
	if err != nil {
		return Allocation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-read sponsorship after conflict")
	}
	return Allocation{Sponsorship: winner}, nil
}

// CreateSponsorship is the standalone pledge-creation operation. Attaching a
// pledge to an archived donor revives the donor in the same transaction.
func (s *Service) CreateSponsorship(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64, startDate time.Time) (*models.Sponsorship, error) {
	if donorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "donor id is required")
	}
	if childID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child id is required")
	}
	if amountCents <= 0 {
		return nil, dErrors.NewField("monthly_amount", "must be positive")
	}
	if startDate.IsZero() {
		startDate = requestcontext.Now(ctx)
	}

	var alloc Allocation
	var donorRestored bool
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		restored, err := s.reviveDonor(txCtx, donorID)
		if err != nil {
			return err
		}
		donorRestored = restored

		alloc, err = s.Allocate(txCtx, donorID, childID, amountCents, startDate)
		return err
	})
	if err != nil {
		return nil, err
	}

	if donorRestored && s.metrics != nil {
		s.metrics.EntitiesRestored.WithLabelValues("donor").Inc()
	}
	if alloc.Created {
		s.incrementCreated()
		s.logAudit(ctx, audit.ActionSponsorshipCreated, audit.Event{
			EntityType: "sponsorship",
			EntityID:   alloc.Sponsorship.ID.String(),
		}, "sponsorship_id", alloc.Sponsorship.ID, "donor_id", donorID, "child_id", childID)
	} else {
		s.incrementReused()
	}
	return alloc.Sponsorship, nil
}

// reviveDonor loads the donor and clears archived_at if set. Merged donors
// never accept new activity.
func (s *Service) reviveDonor(ctx context.Context, donorID id.DonorID) (bool, error) {
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}
	if donor.IsMerged() {
		return false, dErrors.New(dErrors.CodeValidation, "donor has been merged into another record")
	}
	if !donor.IsArchived() {
		return false, nil
	}
	donor.Restore(requestcontext.Now(ctx))
	if err := s.donors.Update(ctx, donor); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore donor")
	}
	return true, nil
}

// EndSponsorship closes an active pledge. The row is kept as the historical
// record of the pledge period; it never reopens.
func (s *Service) EndSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID, endDate time.Time) (*models.Sponsorship, error) {
	if sponsorshipID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sponsorship id is required")
	}
	if endDate.IsZero() {
		endDate = requestcontext.Now(ctx)
	}

	var sp *models.Sponsorship
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.sponsorships.FindByID(txCtx, sponsorshipID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sponsorship")
		}
		if id.DateOnly(endDate).Before(found.StartDate) {
			return dErrors.NewField("end_date", "cannot precede the start date")
		}
		if err := found.End(endDate, requestcontext.Now(txCtx)); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeConflict, "sponsorship has already ended")
			}
			return err
		}
		if err := s.sponsorships.Update(txCtx, found); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end sponsorship")
		}
		sp = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.ActionSponsorshipEnded, audit.Event{
		EntityType: "sponsorship",
		EntityID:   sp.ID.String(),
	}, "sponsorship_id", sp.ID)
	return sp, nil
}

// Get loads one sponsorship.
func (s *Service) Get(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	if sponsorshipID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sponsorship id is required")
	}
	sp, err := s.sponsorships.FindByID(ctx, sponsorshipID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sponsorship")
	}
	return sp, nil
}
