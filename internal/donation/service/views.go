package service

import (
	"context"
	"errors"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PendingReview lists donations whose settlement outcome is anything but
// succeeded, oldest first.
func (s *Service) PendingReview(ctx context.Context) ([]*models.Donation, error) {
	out, err := s.donations.ListPendingReview(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations pending review")
	}
	return out, nil
}

// Active lists succeeded donations, oldest first.
func (s *Service) Active(ctx context.Context) ([]*models.Donation, error) {
	out, err := s.donations.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active donations")
	}
	return out, nil
}

// ForSubscription lists every donation carrying the given external
// subscription id, including ones flagged as advisory duplicates.
func (s *Service) ForSubscription(ctx context.Context, externalSubscriptionID string) ([]*models.Donation, error) {
	if externalSubscriptionID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subscription id is required")
	}
	out, err := s.donations.ListBySubscription(ctx, externalSubscriptionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations for subscription")
	}
	return out, nil
}

// Get loads one donation.
func (s *Service) Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	if donationID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "donation id is required")
	}
	d, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}
	return d, nil
}
