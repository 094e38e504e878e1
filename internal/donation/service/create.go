package service

import (
	"context"
	"errors"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// CreateDonationRequest carries everything a donation intake may supply.
// Either DonorID names an existing donor or the Donor attributes are resolved
// into one. ChildID routes the donation through the sponsorship allocator;
// otherwise ProjectID, or the general fund when both are absent.
type CreateDonationRequest struct {
	DonorID *id.DonorID
	Donor   identity.Attributes

	ProjectID *id.ProjectID
	ChildID   *id.ChildID

	AmountCents   int64
	Date          time.Time
	PaymentMethod string
	Status        string

	ExternalSubscriptionID string
	ExternalInvoiceID      string
	ExternalChargeID       string
}

// CreateResult reports what a donation intake did beyond the donation itself,
// so callers can meter and audit without re-deriving it.
type CreateResult struct {
	Donation           *models.Donation
	Donor              *donormodels.Donor
	DonorCreated       bool
	DonorRestored      bool
	ProjectRestored    bool
	SponsorshipCreated bool
	Flagged            bool
}

// CreateDonation runs the full intake flow in one transaction: resolve the
// donor identity, revive archived donor/project on attachment, allocate a
// sponsorship when a child is targeted, validate, flag advisory duplicates,
// and insert behind the (subscription, child) duplicate guard.
func (s *Service) CreateDonation(ctx context.Context, req CreateDonationRequest) (*CreateResult, error) {
	var result CreateResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.createDonationTx(txCtx, req, &result)
	})
	if err != nil {
		return nil, err
	}
	s.finishCreate(ctx, &result)
	return &result, nil
}

// createDonationTx is the intake flow proper. It assumes the caller holds the
// transaction; metering and audit happen after commit via finishCreate.
func (s *Service) createDonationTx(txCtx context.Context, req CreateDonationRequest, result *CreateResult) error {
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return err
	}
	status := models.StatusSucceeded
	if req.Status != "" {
		if status, err = models.ParseStatus(req.Status); err != nil {
			return err
		}
	}

	donor, donorCreated, donorRestored, err := s.resolveDonor(txCtx, req)
	if err != nil {
		return err
	}
	result.Donor = donor
	result.DonorCreated = donorCreated
	result.DonorRestored = donorRestored

	dest, err := s.resolveDestination(txCtx, donor.ID, req)
	if err != nil {
		return err
	}
	result.ProjectRestored = dest.projectRestored
	result.SponsorshipCreated = dest.sponsorshipCreated

	now := requestcontext.Now(txCtx)
	donation, err := models.NewDonation(id.NewDonationID(), donor.ID, dest.projectID,
		req.AmountCents, req.Date, method, status, now)
	if err != nil {
		return err
	}
	donation.SponsorshipID = dest.sponsorshipID
	donation.ChildID = dest.childID
	if req.ExternalSubscriptionID != "" {
		donation.ExternalSubscriptionID = &req.ExternalSubscriptionID
	}
	if req.ExternalInvoiceID != "" {
		donation.ExternalInvoiceID = &req.ExternalInvoiceID
	}
	if req.ExternalChargeID != "" {
		donation.ExternalChargeID = &req.ExternalChargeID
	}

	if donation.ExternalSubscriptionID != nil {
		flagged, err := s.donations.ExistsSubscriptionForOtherChild(txCtx,
			*donation.ExternalSubscriptionID, donation.ChildID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check duplicate subscription")
		}
		donation.DuplicateSubscription = flagged
		result.Flagged = flagged
	}

	if err := s.donations.Create(txCtx, donation); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeValidation, "a donation for this subscription and child already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donation")
	}
	result.Donation = donation
	return nil
}

// finishCreate meters and audits a committed intake.
func (s *Service) finishCreate(ctx context.Context, result *CreateResult) {
	s.meterCreate(result)
	s.logAudit(ctx, audit.ActionDonationCreated, audit.Event{
		EntityType: "donation",
		EntityID:   result.Donation.ID.String(),
	}, "donation_id", result.Donation.ID, "donor_id", result.Donor.ID,
		"amount_cents", result.Donation.AmountCents, "status", result.Donation.Status)
}

// resolveDonor returns the donor the donation belongs to, creating one from
// the resolved identity when no existing record matches. Attaching to an
// archived donor revives it; merged donors never accept new activity.
func (s *Service) resolveDonor(ctx context.Context, req CreateDonationRequest) (donor *donormodels.Donor, created, restored bool, err error) {
	now := requestcontext.Now(ctx)

	if req.DonorID != nil {
		donor, err = s.donors.FindByID(ctx, *req.DonorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, false, false, dErrors.New(dErrors.CodeNotFound, "donor not found")
			}
			return nil, false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
		}
		if donor.IsMerged() {
			return nil, false, false, dErrors.New(dErrors.CodeValidation, "donor has been merged into another record")
		}
		if donor.IsArchived() {
			donor.Restore(now)
			if err := s.donors.Update(ctx, donor); err != nil {
				return nil, false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore donor")
			}
			restored = true
		}
		return donor, false, restored, nil
	}

	resolved, err := identity.Resolve(req.Donor)
	if err != nil {
		return nil, false, false, err
	}

	donor, err = s.donors.FindByEmail(ctx, resolved.Email)
	if err == nil {
		return donor, false, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up donor")
	}

	donor, err = donormodels.NewDonor(id.NewDonorID(), resolved.Name, resolved.Email, resolved.Phone, resolved.Address, now)
	if err != nil {
		return nil, false, false, err
	}
	if err := s.donors.Create(ctx, donor); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost a race on the live-email unique index; adopt the winner.
			winner, findErr := s.donors.FindByEmail(ctx, resolved.Email)
			if findErr != nil {
				return nil, false, false, dErrors.New(dErrors.CodeValidation, "email has already been taken")
			}
			return winner, false, false, nil
		}
		return nil, false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor")
	}
	return donor, true, false, nil
}

type destination struct {
	projectID          id.ProjectID
	sponsorshipID      *id.SponsorshipID
	childID            *id.ChildID
	sponsorshipCreated bool
	projectRestored    bool
}

// resolveDestination decides which project the donation funds. A child target
// goes through the allocator; an explicit project revives on attachment; no
// target means the general fund.
func (s *Service) resolveDestination(ctx context.Context, donorID id.DonorID, req CreateDonationRequest) (destination, error) {
	if req.ChildID != nil {
		alloc, err := s.allocator.Allocate(ctx, donorID, *req.ChildID, req.AmountCents, req.Date)
		if err != nil {
			return destination{}, err
		}
		spID := alloc.Sponsorship.ID
		return destination{
			projectID:          alloc.Sponsorship.ProjectID,
			sponsorshipID:      &spID,
			childID:            req.ChildID,
			sponsorshipCreated: alloc.Created,
		}, nil
	}

	if req.ProjectID != nil {
		project, err := s.projects.FindByID(ctx, *req.ProjectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return destination{}, dErrors.New(dErrors.CodeNotFound, "project not found")
			}
			return destination{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
		}
		if project.Type == projectmodels.TypeSponsorship {
			return destination{}, dErrors.New(dErrors.CodeValidation, "donations to a sponsorship project must target its child")
		}
		dest := destination{projectID: project.ID}
		if project.IsArchived() {
			project.Restore(requestcontext.Now(ctx))
			if err := s.projects.Update(ctx, project); err != nil {
				return destination{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore project")
			}
			dest.projectRestored = true
		}
		return dest, nil
	}

	fund, err := s.projects.FindGeneralFund(ctx)
	if err != nil {
		return destination{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load general fund")
	}
	return destination{projectID: fund.ID}, nil
}

func (s *Service) meterCreate(result *CreateResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.DonationsCreated.Inc()
	if result.SponsorshipCreated {
		s.metrics.SponsorshipsCreated.Inc()
	} else if result.Donation.SponsorshipID != nil {
		s.metrics.SponsorshipsReused.Inc()
	}
	if result.Flagged {
		s.metrics.DuplicatesFlagged.Inc()
	}
	if result.DonorRestored {
		s.metrics.EntitiesRestored.WithLabelValues("donor").Inc()
	}
	if result.ProjectRestored {
		s.metrics.EntitiesRestored.WithLabelValues("project").Inc()
	}
}
